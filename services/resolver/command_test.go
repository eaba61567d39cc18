package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateArgs(t *testing.T) {
	tests := []struct {
		name    string
		command Command
		args    []string
		valid   bool
	}{
		{name: "recent bare", command: CommandRecent, valid: true},
		{name: "recent with arg", command: CommandRecent, args: []string{"x"}},
		{name: "search", command: CommandSearch, args: []string{"naruto"}, valid: true},
		{name: "search missing", command: CommandSearch},
		{name: "search blank", command: CommandSearch, args: []string{"   "}},
		{name: "search two args", command: CommandSearch, args: []string{"a", "b"}},
		{name: "details", command: CommandDetails, args: []string{"42"}, valid: true},
		{name: "stream", command: CommandStream, args: []string{"a,b"}, valid: true},
		{name: "unknown", command: Command("delete"), args: []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArgs(tt.command, tt.args)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestLimitedBuffer(t *testing.T) {
	b := newLimitedBuffer(4)
	n, err := b.Write([]byte("abc"))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, b.Overflowed())

	n, err = b.Write([]byte("def"))
	assert.NoError(t, err)
	assert.Equal(t, 3, n, "writes always report full consumption")
	assert.True(t, b.Overflowed())
	assert.Equal(t, "abcd", string(b.Bytes()))
	assert.Equal(t, int64(6), b.Total())

	unbounded := newLimitedBuffer(0)
	_, _ = unbounded.Write([]byte("0123456789"))
	assert.False(t, unbounded.Overflowed())
	assert.Equal(t, "0123456789", string(unbounded.Bytes()))
}
