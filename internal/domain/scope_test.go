package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope_AllowsServerMethod(t *testing.T) {
	s := &Scope{
		Name:          "eng-readonly",
		GroupMappings: []string{"eng"},
		ServerAccess: []EntityAccess{
			{Path: "/weather", Methods: []string{"tools/list", "tools/call"}, Tools: []string{"forecast"}},
			{Path: "/maps", Methods: []string{"*"}},
		},
	}

	assert.True(t, s.AllowsServerMethod("/weather", "tools/call", "forecast"))
	assert.False(t, s.AllowsServerMethod("/weather", "tools/call", "geocode"))
	assert.False(t, s.AllowsServerMethod("/weather", "resources/read", ""))
	assert.True(t, s.AllowsServerMethod("/maps", "anything", "anything"))
	assert.False(t, s.AllowsServerMethod("/unknown", "tools/list", ""))
}

func TestScope_AdminBypass(t *testing.T) {
	s := &Scope{Name: "admin", GroupMappings: []string{"admins"}, IsAdminScope: true}
	assert.True(t, s.AllowsServerMethod("/anything", "anything", "anything"))
	assert.True(t, s.AllowsAgentMethod("/anything", "anything", "anything"))
}

func TestScope_Validate(t *testing.T) {
	assert.ErrorContains(t, (&Scope{}).Validate(), "name")
	assert.ErrorContains(t, (&Scope{Name: "x"}).Validate(), "group")
	assert.NoError(t, (&Scope{Name: "x", GroupMappings: []string{"eng"}}).Validate())
}
