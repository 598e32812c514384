package helpers

import "strings"

// Joiner concatenates many output fragments with a single allocation at the
// end. Chunks are assembled from one fragment per module plus separators, so
// measuring first and copying once avoids repeated buffer growth.
type Joiner struct {
	parts    []joinerPart
	length   uint32
	lastByte byte
}

type joinerPart struct {
	data   string
	offset uint32
}

func (j *Joiner) AddString(data string) {
	if len(data) == 0 {
		return
	}
	j.lastByte = data[len(data)-1]
	j.parts = append(j.parts, joinerPart{data, j.length})
	j.length += uint32(len(data))
}

func (j *Joiner) AddBytes(data []byte) {
	j.AddString(string(data))
}

func (j *Joiner) Length() uint32 {
	return j.length
}

func (j *Joiner) EnsureNewlineAtEnd() {
	if j.length > 0 && j.lastByte != '\n' {
		j.AddString("\n")
	}
}

func (j *Joiner) Contains(s string) bool {
	for _, part := range j.parts {
		if strings.Contains(part.data, s) {
			return true
		}
	}
	return false
}

func (j *Joiner) Done() []byte {
	buffer := make([]byte, j.length)
	for _, part := range j.parts {
		copy(buffer[part.offset:], part.data)
	}
	return buffer
}
