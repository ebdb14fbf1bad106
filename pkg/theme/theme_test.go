package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/obriencj/koji-habitude-go/pkg/change"
)

func TestNoColorThemePassesTextThrough(t *testing.T) {
	assert.Equal(t, "hello", NoColor.Style("hello", change.KindCreate))
	assert.Equal(t, "hello", NoColor.Heading("hello"))
	assert.Equal(t, "hello", NoColor.Unchanged("hello"))
}

func TestDefaultThemeStylesEveryKind(t *testing.T) {
	for _, kind := range []change.Kind{change.KindCreate, change.KindUpdate, change.KindAdd, change.KindRemove, change.KindModify} {
		styled := Default.Style("x", kind)
		assert.NotEmpty(t, styled)
	}
}

func TestSelectHonorsNoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, NoColor, Select())
}
