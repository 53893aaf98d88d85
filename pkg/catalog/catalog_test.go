package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Loads(t *testing.T) {
	c := Default()
	require.NotNil(t, c)
	assert.Len(t, c.Roles, 8)
	assert.True(t, c.IsRole("backend"))
	assert.False(t, c.IsRole("wizard"))
	assert.Equal(t, []string{"Django", "FastAPI", "Flask"}, c.FrameworksFor("python"))
}

func TestLabels(t *testing.T) {
	c := Default()
	assert.Equal(t, "QA", c.RoleLabel("qa"))
	assert.Equal(t, "Найти ментора", c.GoalLabel("find_mentor"))
	assert.Equal(t, "🚧 В работе", c.StatusLabel("in_progress"))
	assert.Equal(t, "Любой", c.LevelLabel("any"))
	assert.Equal(t, "custom", c.RoleLabel("custom"))
	assert.Equal(t, Placeholder, c.RoleLabel(""))
}

func TestFormatStack(t *testing.T) {
	c := Default()
	tests := []struct {
		raw  string
		want string
	}{
		{"", Placeholder},
		{"python", "Python"},
		{"backend", "Backend"},
		{"python, nodejs", "Python, Node.js"},
		{"python, react; FastAPI", "Python, React; FastAPI"},
		{"py_react; docker", "Python + React; docker"},
		{" ; , ", Placeholder},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.FormatStack(tt.raw), "FormatStack(%q)", tt.raw)
	}
}

func TestFormatRoles(t *testing.T) {
	c := Default()
	assert.Equal(t, "Backend, QA", c.FormatRoles("backend, qa"))
	assert.Equal(t, Placeholder, c.FormatRoles(""))
}

func TestRoleWanted(t *testing.T) {
	c := Default()
	assert.True(t, c.RoleWanted("Backend, Design", "backend"))
	assert.True(t, c.RoleWanted("frontend", "frontend"))
	assert.True(t, c.RoleWanted("anything", ""))
	assert.False(t, c.RoleWanted("Design", "qa"))
}

func TestParse_RejectsEmpty(t *testing.T) {
	_, err := Parse([]byte("goals: []"))
	assert.Error(t, err)
}
