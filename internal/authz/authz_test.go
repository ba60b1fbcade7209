package authz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_RoleTable(t *testing.T) {
	p := Default()

	assert.True(t, p.Allows(RoleOperator, JobCreate))
	assert.True(t, p.Allows(RoleOperator, OperationAdd))
	assert.True(t, p.Allows(RoleOperator, JobComplete))
	assert.False(t, p.Allows(RoleOperator, JobCancel))
	assert.False(t, p.Allows(RoleOperator, ScrapApprove))
	assert.False(t, p.Allows(RoleOperator, ScrapReject))

	for _, role := range []Role{RoleSupervisor, RoleManager} {
		assert.True(t, p.Allows(role, JobCancel), role)
		assert.True(t, p.Allows(role, ScrapApprove), role)
		assert.True(t, p.Allows(role, ScrapReject), role)
	}

	assert.False(t, p.Allows(Role("GUEST"), JobCreate))
}

func TestParse_RejectsOperatorApproval(t *testing.T) {
	_, err := Parse([]byte("roles:\n  OPERATOR:\n    - scrap.approve\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrap.approve")
}

func TestParse_UnknownAction(t *testing.T) {
	_, err := Parse([]byte("roles:\n  MANAGER:\n    - job.delete\n"))
	require.Error(t, err)
}

func TestParse_UnknownRole(t *testing.T) {
	_, err := Parse([]byte("roles:\n  janitor:\n    - job.create\n"))
	require.Error(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  manager:\n    - job.cancel\n    - job.start\n"), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Action{JobCancel, JobStart}, p.Actions(RoleManager))
	assert.False(t, p.Allows(RoleSupervisor, JobCancel))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" supervisor ")
	require.NoError(t, err)
	assert.Equal(t, RoleSupervisor, r)

	_, err = ParseRole("")
	assert.Error(t, err)
}
