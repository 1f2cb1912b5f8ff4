package ring

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

type wavFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// parseWAV extracts the format chunk and raw PCM data from a WAV payload.
func parseWAV(data []byte) (*wavFormat, []byte, error) {
	r := bytes.NewReader(data)

	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, nil, fmt.Errorf("short WAV header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, nil, fmt.Errorf("not a RIFF/WAVE payload")
	}

	format := &wavFormat{}
	haveFmt := false
	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(r, chunkHeader); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, nil, err
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, nil, fmt.Errorf("fmt chunk too small: %d", chunkSize)
			}
			fmtChunk := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, fmtChunk); err != nil {
				return nil, nil, err
			}
			format.Channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			format.BitDepth = int(binary.LittleEndian.Uint16(fmtChunk[14:16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, nil, fmt.Errorf("data chunk before fmt chunk")
			}
			pcm := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return nil, nil, fmt.Errorf("truncated data chunk: %w", err)
			}
			if format.SampleRate <= 0 || format.Channels <= 0 {
				return nil, nil, fmt.Errorf("invalid format: %+v", format)
			}
			return format, pcm, nil
		default:
			if _, err := r.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return nil, nil, err
			}
		}
	}
	return nil, nil, fmt.Errorf("no data chunk found")
}
