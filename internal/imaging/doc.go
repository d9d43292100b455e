// Package imaging implements the decode and transform stages of the image
// transform pipeline.
//
// Images are decoded into a Grid, a row-major float64 pixel array with the
// origin at the top-left corner, X increasing rightward and Y increasing
// downward. Three stateless transforms operate on a Grid:
//
//   - EdgeMap: Canny edges blended with a normalised 5x5 Sobel magnitude
//   - FrequencyMap: centred log-magnitude 2D Fourier spectrum
//   - Heightmap: smoothed, 2x downsampled, jet-coloured pseudo-elevation map
//
// Transform dispatches on a Mode and rejects unknown modes with
// ErrInvalidMode.
//
// # Decoding
//
// A Decoder tries an ordered list of DecodeStrategy values. SniffedDecoder
// recognises JPEG, PNG, GIF, TIFF and BMP by signature and calls the format
// decoder directly; GenericDecoder falls back to the registered format table,
// which also includes WebP. Both produce the same canonical channel order.
//
// # Normalisation
//
// Steps that scale by the maximum observed value (the Sobel term of EdgeMap
// and the FrequencyMap spectrum) produce all zeros when that maximum is zero,
// so constant images never divide by zero.
//
// # Thread Safety
//
// All functions are stateless. Grids are plain values owned by the caller.
package imaging
