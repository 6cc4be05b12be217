// Package wave builds RIFF/WAVE headers for the file-wav sink, generalizing
// the fixed-format 16-bit PCM assumption of github.com/ik5/audpbx/formats/wav
// to all five media.SampleType container widths, both PCM and IEEE-float
// format tags, and the "fact" chunk float formats require.
package wave
