package sh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ddsbox/pkg/l0/comm"
	"github.com/robotalks/ddsbox/pkg/l1"
)

func TestFormatInfo(t *testing.T) {
	info := l1.BoxInfo{Ref: l1.BoxRef{Type: "ddsbox", ID: "lab1"}}
	require.Equal(t, "ddsbox/lab1", FormatInfo(info))
	info.Meta.Description = "Lab 1 synthesizers"
	info.Meta.Slots = 4
	require.Equal(t, "ddsbox/lab1: Lab 1 synthesizers (4 slots)", FormatInfo(info))
}

func TestNewResult(t *testing.T) {
	res := NewResult("I1R0e\n", &comm.Reply{Lines: []string{">Read Mode"}}, nil)
	require.Equal(t, "I1R0e", res.Command)
	require.Equal(t, []string{">Read Mode"}, res.Lines)
	require.Empty(t, res.Error)

	res = NewResult("I5T", nil, errors.New("no device slot I5 (4 configured)"))
	require.NotNil(t, res.Lines)
	require.Empty(t, res.Lines)
	require.Equal(t, "no device slot I5 (4 configured)", res.Error)
}
