// Package pdf assembles a list of gallery images into a single PDF
// document. Pages either share a fixed size with each image centered and
// scaled to fit, or take each image's native pixel dimensions. The
// interleaved mode reconstructs duplex scans by interleaving the first and
// second halves of the selection.
package pdf
