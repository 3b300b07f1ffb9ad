package decode

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// wavFormat mirrors a standard WAV fmt chunk layout. See
// http://soundfile.sapp.org/doc/WaveFormat/ for the format this reader
// parses.
type wavFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// WAVDecoder reads uncompressed PCM WAV files, resampling to
// targetSampleRate with simple linear interpolation if the file's native
// rate differs.
type WAVDecoder struct{}

// Convert reads the WAV file at path and returns its audio resampled to
// targetSampleRate. Only 16-bit PCM is supported; anything else fails
// with ErrDecodeFailed.
func (WAVDecoder) Convert(ctx context.Context, path string, targetSampleRate int) (PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return PCM{}, wrapDecodeError(path, err)
	}
	defer f.Close()

	pcm, err := readWAV(f)
	if err != nil {
		return PCM{}, wrapDecodeError(path, err)
	}
	if ctx.Err() != nil {
		return PCM{}, wrapDecodeError(path, ctx.Err())
	}

	if targetSampleRate > 0 && targetSampleRate != pcm.SampleRate {
		pcm = resample(pcm, targetSampleRate)
	}
	return toStereo(pcm), nil
}

// toStereo upmixes mono to stereo and drops channels beyond the second,
// so every decoded sample matches the two-channel device stream
// cmd/loopplay's engine mixes samplers into.
func toStereo(pcm PCM) PCM {
	if pcm.ChannelCount == 2 {
		return pcm
	}
	channels := pcm.ChannelCount
	if channels <= 0 {
		channels = 1
	}
	frameCount := len(pcm.Samples) / channels
	out := make([]int16, frameCount*2)
	for i := 0; i < frameCount; i++ {
		l := pcm.Samples[i*channels]
		r := l
		if channels >= 2 {
			r = pcm.Samples[i*channels+1]
		}
		out[i*2] = l
		out[i*2+1] = r
	}
	return PCM{SampleRate: pcm.SampleRate, ChannelCount: 2, Samples: out}
}

func readWAV(r io.Reader) (PCM, error) {
	var riffID [4]byte
	if err := binary.Read(r, binary.LittleEndian, &riffID); err != nil {
		return PCM{}, err
	}
	if string(riffID[:]) != "RIFF" {
		return PCM{}, fmt.Errorf("not a RIFF file")
	}
	var riffSize int32
	if err := binary.Read(r, binary.LittleEndian, &riffSize); err != nil {
		return PCM{}, err
	}
	var waveID [4]byte
	if err := binary.Read(r, binary.LittleEndian, &waveID); err != nil {
		return PCM{}, err
	}
	if string(waveID[:]) != "WAVE" {
		return PCM{}, fmt.Errorf("not a WAVE file")
	}

	var format wavFormat
	var haveFormat bool
	for {
		var chunkID [4]byte
		if err := binary.Read(r, binary.LittleEndian, &chunkID); err != nil {
			if err == io.EOF {
				break
			}
			return PCM{}, err
		}
		var chunkSize int32
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			return PCM{}, err
		}

		switch string(chunkID[:]) {
		case "fmt ":
			if err := binary.Read(r, binary.LittleEndian, &format); err != nil {
				return PCM{}, err
			}
			haveFormat = true
			if rem := int64(chunkSize) - 16; rem > 0 {
				if _, err := io.CopyN(io.Discard, r, rem); err != nil {
					return PCM{}, err
				}
			}
		case "data":
			if !haveFormat {
				return PCM{}, fmt.Errorf("data chunk before fmt chunk")
			}
			if format.AudioFormat != 1 || format.BitsPerSample != 16 {
				return PCM{}, fmt.Errorf("unsupported WAV format (audioFormat=%d bitsPerSample=%d)", format.AudioFormat, format.BitsPerSample)
			}
			n := int(chunkSize) / 2
			samples := make([]int16, n)
			if err := binary.Read(r, binary.LittleEndian, &samples); err != nil {
				return PCM{}, err
			}
			return PCM{
				SampleRate:   int(format.SampleRate),
				ChannelCount: int(format.Channels),
				Samples:      samples,
			}, nil
		default:
			if chunkSize > 0 {
				if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
					return PCM{}, err
				}
			}
		}
	}
	return PCM{}, fmt.Errorf("no data chunk found")
}

// resample performs simple linear-interpolation resampling, adequate for
// the sample lengths this engine deals with (musical loops, not long-form
// recordings where higher-order filtering would matter).
func resample(in PCM, targetRate int) PCM {
	if in.SampleRate <= 0 || targetRate == in.SampleRate {
		return in
	}
	channels := in.ChannelCount
	if channels <= 0 {
		channels = 1
	}
	frameCount := len(in.Samples) / channels
	ratio := float64(in.SampleRate) / float64(targetRate)
	outFrames := int(float64(frameCount) / ratio)
	out := make([]int16, outFrames*channels)

	for i := 0; i < outFrames; i++ {
		srcPos := float64(i) * ratio
		lo := int(srcPos)
		hi := lo + 1
		frac := srcPos - float64(lo)
		if hi >= frameCount {
			hi = frameCount - 1
		}
		if lo >= frameCount {
			lo = frameCount - 1
		}
		for c := 0; c < channels; c++ {
			a := float64(in.Samples[lo*channels+c])
			b := float64(in.Samples[hi*channels+c])
			out[i*channels+c] = int16(a + (b-a)*frac)
		}
	}
	return PCM{SampleRate: targetRate, ChannelCount: channels, Samples: out}
}
