// Package encoder runs one encode test against one clip.
//
// The Executor composes the encoder command line from the clip's decode
// arguments, the source path (a printf pattern for image sequences), a frame
// limit from the clip's source range and the test's encode arguments. It
// times the encode, builds a media reference for the output and records the
// result under the tool version and test name.
//
// A non-zero exit, a start failure or a missing output file yields an
// *EncodeFailure carrying the tail of the encoder output. Callers record it
// and move on to the next pair.
package encoder
