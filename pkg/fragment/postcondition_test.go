// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validFragment = `
from pysling.postconditions import Postcondition as PostconditionBase

class Postcondition(PostconditionBase):
    def holds(self):
        return True
`

func TestNewPostconditionFragment_Valid(t *testing.T) {
	f, err := NewPostconditionFragment(validFragment)
	require.NoError(t, err)
	assert.Equal(t, "Postcondition", f.ClassName())
	assert.Equal(t, validFragment, f.Declarations())
	assert.Empty(t, f.Initialize())
}

func TestNewPostconditionFragment_MissingDeclaration(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{
			name:   "no class at all",
			source: "x = 1\nprint(x)\n",
		},
		{
			name:   "class without the expected base",
			source: "class Foo(object):\n    pass\n",
		},
		{
			name:   "empty fragment",
			source: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPostconditionFragment(tt.source)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoPostcondition)
		})
	}
}

func TestNewPostconditionFragment_SyntaxError(t *testing.T) {
	_, err := NewPostconditionFragment("class Postcondition(PostconditionBase:\n")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoPostcondition)
}

func TestPostconditionFragment_BaseNameVariants(t *testing.T) {
	tests := []struct {
		name   string
		source string
		class  string
	}{
		{
			name: "aliased base name",
			source: `
class CheckDisk(PostconditionBase):
    pass
`,
			class: "CheckDisk",
		},
		{
			name: "attribute reference to base",
			source: `
import postconditions

class CheckDisk(postconditions.PostconditionBase):
    pass
`,
			class: "CheckDisk",
		},
		{
			name: "base name as substring",
			source: `
class CheckDisk(MyPostconditionBase):
    pass
`,
			class: "CheckDisk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewPostconditionFragment(tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.class, f.ClassName())
		})
	}
}

func TestPostconditionFragment_MultipleCandidatesFirstWins(t *testing.T) {
	source := `
class First(PostconditionBase):
    pass

class Second(PostconditionBase):
    pass
`
	f, err := NewPostconditionFragment(source)
	require.NoError(t, err)
	assert.Equal(t, "First", f.ClassName())
}

func TestPostconditionFragment_Imports(t *testing.T) {
	f, err := NewPostconditionFragment(validFragment)
	require.NoError(t, err)

	imports := f.Imports()
	assert.Contains(t, imports, "from pysling import postconditions")
	// The base class itself must not be pulled into the fragment's scope.
	assert.NotContains(t, imports, BaseClassName)
}

func TestPostconditionFragment_ResultExpression(t *testing.T) {
	f, err := NewPostconditionFragment(validFragment)
	require.NoError(t, err)

	assert.Equal(t,
		"postconditions.run_postcondition(Postcondition(), check_mode=True)",
		f.ResultExpression(true))
	assert.Equal(t,
		"postconditions.run_postcondition(Postcondition(), check_mode=False)",
		f.ResultExpression(false))
}
