package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply      string
	err        error
	gotSystem  string
	gotUser    string
	callsCount int
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.callsCount++
	f.gotSystem = system
	f.gotUser = user
	return f.reply, f.err
}

func TestGenerator(t *testing.T) {
	t.Run("embeds description and extracts document", func(t *testing.T) {
		fc := &fakeCompleter{reply: "```json\n" + validPolicy + "\n```"}
		g := NewGenerator("fake", fc)

		doc, err := g.Generate(context.Background(), "read the data-lake bucket")
		require.NoError(t, err)
		assert.Equal(t, "fake", g.Name())
		assert.Len(t, doc.Statement, 1)
		assert.Equal(t, SystemPrompt, fc.gotSystem)
		assert.True(t, strings.HasSuffix(fc.gotUser, "read the data-lake bucket"))
	})

	t.Run("completion failure is returned without retry", func(t *testing.T) {
		cause := errors.New("connection reset")
		fc := &fakeCompleter{err: cause}
		g := NewGenerator("fake", fc)

		_, err := g.Generate(context.Background(), "anything")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 1, fc.callsCount)
	})

	t.Run("unparseable reply", func(t *testing.T) {
		g := NewGenerator("fake", &fakeCompleter{reply: "no policy today"})
		_, err := g.Generate(context.Background(), "anything")
		assert.ErrorIs(t, err, ErrNoJSONObject)
	})
}
