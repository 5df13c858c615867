package profile

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfileFS() fstest.MapFS {
	return fstest.MapFS{
		"default/profile.json": &fstest.MapFile{Data: []byte(`{
			"id": "default", "title": "Default Site", "version": "1.0"
		}`)},
		"default/permissions.json": &fstest.MapFile{Data: []byte(`[
			{"id": "view", "title": "View"},
			{"id": "edit-content", "title": "Edit content"}
		]`)},
		"default/roles.yaml": &fstest.MapFile{Data: []byte(
			"- id: manager\n  title: Manager\n  permissions: [view, edit-content]\n" +
				"- id: reader\n  title: Reader\n  permissions: [view]\n")},
		"default/users.json": &fstest.MapFile{Data: []byte(`[
			{"id": "admin", "name": "Administrator", "password": "secret", "roles": ["manager"]}
		]`)},
		"default/catalog.json": &fstest.MapFile{Data: []byte(`{
			"indexes": [{"name": "review-state", "type": "string"}],
			"metadata": [{"name": "created", "type": "date"}]
		}`)},
		"default/behaviors/dublincore.json": &fstest.MapFile{Data: []byte(`{
			"id": "dublincore",
			"title": "Dublin Core",
			"schema": {"properties": {"title": {"type": "string"}}}
		}`)},
		"default/types/page.json": &fstest.MapFile{Data: []byte(`{
			"id": "page",
			"title": "Page",
			"behaviors": ["dublincore"],
			"schema": {"properties": {"body": {"type": "string"}}}
		}`)},
		"default/documents/_root.json": &fstest.MapFile{Data: []byte(`{
			"type": "site-root", "title": "Home"
		}`)},
		"default/documents/events.json": &fstest.MapFile{Data: []byte(`{
			"id": "events", "type": "folder", "title:de": "Termine", "title:fr": "Événements"
		}`)},
	}
}

func TestLoadProfile(t *testing.T) {
	p, err := Load(testProfileFS(), "default")
	require.Nil(t, err)

	assert.Equal(t, "default", p.ID)
	assert.Equal(t, "Default Site", p.Title)
	assert.Len(t, p.Permissions, 2)

	// yaml declarations decode the same as json
	require.Len(t, p.Roles, 2)
	assert.Equal(t, "manager", p.Roles[0].ID)
	assert.Equal(t, []string{"view", "edit-content"}, p.Roles[0].Permissions)

	require.Len(t, p.Users, 1)
	assert.Equal(t, "admin", p.Users[0].ID)

	require.Len(t, p.CatalogIndexes, 1)
	assert.Equal(t, "review-state", p.CatalogIndexes[0].Name)
	require.Len(t, p.CatalogMetadata, 1)

	require.Len(t, p.Behaviors, 1)
	assert.Equal(t, "dublincore", p.Behaviors[0].ID)
	assert.Contains(t, p.Behaviors[0].Schema.Properties, "title")

	require.Len(t, p.Types, 1)
	assert.Equal(t, []string{"dublincore"}, p.Types[0].Behaviors)
}

func TestLoadProfileDocuments(t *testing.T) {
	p, err := Load(testProfileFS(), "default")
	require.Nil(t, err)

	require.Len(t, p.Documents, 2)
	// sorted by name
	assert.Equal(t, "_root", p.Documents[0].Name)
	assert.Equal(t, "events", p.Documents[1].Name)
	// language suffixes are stripped on read
	assert.Contains(t, string(p.Documents[1].Data), `"Termine"`)
	assert.NotContains(t, string(p.Documents[1].Data), "title:de")
}

func TestLoadProfileNotFound(t *testing.T) {
	_, err := Load(testProfileFS(), "nonexistent")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestLoadProfileMissingMetadata(t *testing.T) {
	fsys := fstest.MapFS{
		"broken/permissions.json": &fstest.MapFile{Data: []byte(`[]`)},
	}
	_, err := Load(fsys, "broken")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestLoadProfileInvalidRecordID(t *testing.T) {
	fsys := testProfileFS()
	fsys["bad/profile.json"] = &fstest.MapFile{Data: []byte(`{"id": "bad"}`)}
	fsys["bad/permissions.json"] = &fstest.MapFile{Data: []byte(`[{"id": "Not Valid!"}]`)}
	_, err := Load(fsys, "bad")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestLoadProfileSkipsInvalidDocument(t *testing.T) {
	fsys := testProfileFS()
	fsys["default/documents/bad.json"] = &fstest.MapFile{Data: []byte(`{"id": 42}`)}

	p, err := Load(fsys, "default")
	require.Nil(t, err)
	for _, d := range p.Documents {
		assert.NotEqual(t, "bad", d.Name)
	}
}

func TestResourceIdValidation(t *testing.T) {
	valid := []string{"a", "page", "event-1", "a.b.c", "x_y", "0abc"}
	invalid := []string{"", "-leading", "trailing-", "Upper", "has space", "dot.", ".dot"}

	for _, id := range valid {
		assert.True(t, resourceIdRe.MatchString(id), id)
	}
	for _, id := range invalid {
		assert.False(t, resourceIdRe.MatchString(id), id)
	}
}

func TestValidateDocumentDecl(t *testing.T) {
	require.Nil(t, validateDocumentDecl([]byte(`{"id": "events", "type": "folder", "position": 3}`)))
	require.Nil(t, validateDocumentDecl([]byte(`{"id": "events", "custom": {"anything": true}}`)))

	assert.NotNil(t, validateDocumentDecl([]byte(`{"id": 42}`)))
	assert.NotNil(t, validateDocumentDecl([]byte(`{"position": -1}`)))
	assert.NotNil(t, validateDocumentDecl([]byte(`{"position": 1.5}`)))
	assert.NotNil(t, validateDocumentDecl([]byte(`not json`)))
}
