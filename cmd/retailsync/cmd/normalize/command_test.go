package normalize

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/retailsync/cmd/application"
)

func TestNewCommand(t *testing.T) {
	app := &application.Mock{OutputFormatFunc: func() string { return "csv" }}
	cmd := NewCommand(app)

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"Store 12 North", "North-Store #12."})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "Store 12 North,12 north store")
	assert.Contains(t, buf.String(), "North-Store #12.,12 north store")
}

func TestNewCommandRequiresLabel(t *testing.T) {
	cmd := NewCommand(&application.Mock{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}
