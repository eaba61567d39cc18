package resolver

import "bytes"

// limitedBuffer keeps at most limit bytes and silently discards the rest so the
// child never blocks on a full pipe.
type limitedBuffer struct {
	buf      bytes.Buffer
	limit    int64
	total    int64
	overflow bool
}

func newLimitedBuffer(limit int64) *limitedBuffer {
	return &limitedBuffer{limit: limit}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.total += int64(len(p))
	if b.limit <= 0 {
		b.buf.Write(p)
		return len(p), nil
	}
	remaining := b.limit - int64(b.buf.Len())
	if remaining <= 0 {
		b.overflow = true
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.buf.Write(p[:remaining])
		b.overflow = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) Bytes() []byte { return b.buf.Bytes() }

// Total is the number of bytes the writer was offered, kept or not.
func (b *limitedBuffer) Total() int64 { return b.total }

func (b *limitedBuffer) Overflowed() bool { return b.overflow }
