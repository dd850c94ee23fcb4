package stdlib

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

const (
	wavBitDepth   = 16
	wavHeaderSize = 44
	pcmFormat     = 1
)

// EncodeWAV writes mono samples as 16-bit PCM. Samples outside [-1, 1]
// are clipped.
func EncodeWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, wavBitDepth, 1, pcmFormat)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: wavBitDepth,
	}
	for i, x := range samples {
		buf.Data[i] = int(min(max(x, -1), 1) * 32767)
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, "encoding wav")
	}
	return errors.Wrap(enc.Close(), "encoding wav")
}

// WriteWAV writes samples to a WAV file at path inside the sandbox.
func (s *FSSandbox) WriteWAV(path string, samples []float32, sampleRate int) (err error) {
	if size := wavHeaderSize + len(samples)*wavBitDepth/8; size > s.MaxFileSize {
		return errors.Wrapf(ErrFileTooLarge, "%q: %d bytes", path, size)
	}
	f, err := s.create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return EncodeWAV(f, samples, sampleRate)
}
