// Package audio decodes downloaded audio files into mono float32 PCM at the
// rate the speech models expect.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// WhisperSampleRate is the input rate of whisper models.
const WhisperSampleRate = 16000

// Samples is interleaved PCM scaled to [-1, 1].
type Samples struct {
	Data       []float32
	Channels   int
	SampleRate int
}

// Duration returns the length in seconds.
func (s Samples) Duration() float64 {
	if s.Channels == 0 || s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Data)/s.Channels) / float64(s.SampleRate)
}

// Decode reads a .wav or .mp3 file.
func Decode(path string) (Samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return Samples{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	default:
		return Samples{}, fmt.Errorf("unsupported audio format %q (want .wav or .mp3)", filepath.Ext(path))
	}
}

// Load decodes path and returns mono samples at WhisperSampleRate.
func Load(path string) ([]float32, error) {
	s, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return Resample(Mono(s), s.SampleRate, WhisperSampleRate), nil
}

func decodeWAV(r io.ReadSeeker) (Samples, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return Samples{}, fmt.Errorf("invalid wav file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Samples{}, fmt.Errorf("decode wav: %w", err)
	}
	return fromIntBuffer(buf, int(d.BitDepth)), nil
}

func fromIntBuffer(buf *goaudio.IntBuffer, bitDepth int) Samples {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / scale
	}
	return Samples{Data: out, Channels: buf.Format.NumChannels, SampleRate: buf.Format.SampleRate}
}

// go-mp3 always yields 16-bit little-endian stereo.
func decodeMP3(r io.Reader) (Samples, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return Samples{}, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return Samples{}, fmt.Errorf("decode mp3: %w", err)
	}
	return Samples{Data: PCM16ToFloat32(raw), Channels: 2, SampleRate: d.SampleRate()}, nil
}

// PCM16ToFloat32 converts little-endian signed 16-bit PCM bytes.
func PCM16ToFloat32(raw []byte) []float32 {
	out := make([]float32, len(raw)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

// Mono averages interleaved channels.
func Mono(s Samples) []float32 {
	if s.Channels <= 1 {
		out := make([]float32, len(s.Data))
		copy(out, s.Data)
		return out
	}
	frames := len(s.Data) / s.Channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < s.Channels; c++ {
			sum += s.Data[i*s.Channels+c]
		}
		out[i] = sum / float32(s.Channels)
	}
	return out
}

// Resample converts between rates by linear interpolation.
func Resample(in []float32, srcSR, dstSR int) []float32 {
	if srcSR == dstSR || len(in) == 0 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	ratio := float64(dstSR) / float64(srcSR)
	outLen := int(float64(len(in))*ratio + 0.9999)
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}
	return out
}
