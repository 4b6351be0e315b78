package streambuf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBusyGroupErr(t *testing.T) {
	assert.True(t, isBusyGroupErr(errors.New("BUSYGROUP Consumer Group name already exists")))
	assert.False(t, isBusyGroupErr(errors.New("NOGROUP no such key")))
	assert.False(t, isBusyGroupErr(nil))
	assert.False(t, isBusyGroupErr(errors.New("short")))
}
