// Package envelope parses multipart XML envelopes into Documents.
//
// An envelope is an XML file holding one or more Part elements, either wrapped
// in a Parts container or placed directly anywhere under the root. Each Part
// carries Filename, Type and a base64 Body; the body is decoded during
// parsing, so a Part never holds raw base64 text.
//
// Parsing is strict: any Part that is missing a required element or whose body
// fails to decode rejects the whole envelope with an error matching
// ErrMalformed.
package envelope
