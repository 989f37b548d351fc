// Package barcode is the decoder capability used by the scan pipeline.
//
// It wraps gozxing behind a small Backend interface so callers can hand
// any image.Image plus decoding hints and get back decoded symbols. The
// pipeline never touches gozxing types directly, which keeps it testable
// with instrumented fakes.
package barcode
