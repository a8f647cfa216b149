// Package waveform decodes MUSE waveform blobs into calibrated microvolt
// series and derives the limb leads that the device does not record.
//
// Blobs are base64 text of little-endian signed 16-bit samples. Decode is a
// pure function of the blob and its scale; failures are reported as
// *DecodeError and never as a partially filled series.
package waveform
