// Package profile loads declarative seed profiles: named bundles of baseline
// records (permissions, roles, users, behaviors, types, catalog indexes,
// actions, control panels, documents) read from a filesystem tree.
package profile

import (
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	sigyaml "sigs.k8s.io/yaml"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/schema"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

var (
	ErrProfile         apperrors.Error = apperrors.New("profile error").SetStatusCode(http.StatusInternalServerError)
	ErrProfileNotFound apperrors.Error = ErrProfile.New("profile not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidProfile  apperrors.Error = ErrProfile.New("invalid profile").SetStatusCode(http.StatusBadRequest)
)

type Permission struct {
	ID    string `json:"id" validate:"required,resourceid"`
	Title string `json:"title"`
}

type Role struct {
	ID          string   `json:"id" validate:"required,resourceid"`
	Title       string   `json:"title"`
	Permissions []string `json:"permissions" validate:"dive,resourceid"`
}

type Group struct {
	ID    string   `json:"id" validate:"required,resourceid"`
	Title string   `json:"title"`
	Roles []string `json:"roles" validate:"dive,resourceid"`
}

type User struct {
	ID       string   `json:"id" validate:"required,resourceid"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Name     string   `json:"name"`
	Password string   `json:"password"`
	Roles    []string `json:"roles" validate:"dive,resourceid"`
	Groups   []string `json:"groups" validate:"dive,resourceid"`
}

type Workflow struct {
	ID           string          `json:"id" validate:"required,resourceid"`
	Title        string          `json:"title"`
	InitialState string          `json:"initial_state"`
	Definition   json.RawMessage `json:"definition,omitempty"`
}

type Behavior struct {
	ID     string           `json:"id" validate:"required,resourceid"`
	Title  string           `json:"title"`
	Schema *schema.Fragment `json:"schema"`
}

type ContentType struct {
	ID        string           `json:"id" validate:"required,resourceid"`
	Title     string           `json:"title"`
	Workflow  string           `json:"workflow" validate:"omitempty,resourceid"`
	Behaviors []string         `json:"behaviors" validate:"dive,resourceid"`
	Schema    *schema.Fragment `json:"schema"`
}

type CatalogIndex struct {
	Name string          `json:"name" validate:"required,resourceid"`
	Type types.IndexType `json:"type" validate:"required,indextype"`
}

type Action struct {
	ID       string `json:"id" validate:"required,resourceid"`
	Title    string `json:"title"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

type ControlPanel struct {
	ID     string           `json:"id" validate:"required,resourceid"`
	Title  string           `json:"title"`
	Group  string           `json:"group"`
	Schema *schema.Fragment `json:"schema,omitempty"`
}

// DocumentFile is one declarative document, named by its dot-joined slug path
// ("events.event-1"; types.RootDocumentName for the root). Data is the
// i18n-stripped JSON declaration.
type DocumentFile struct {
	Name string
	Data []byte
}

// Profile is one named bundle of baseline records seeded into a tenant
// database. Multiple profiles seed in order into the same database.
type Profile struct {
	ID          string `json:"id" validate:"required,resourceid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`

	Permissions     []Permission
	Roles           []Role
	Groups          []Group
	Users           []User
	Workflows       []Workflow
	Behaviors       []Behavior
	Types           []ContentType
	CatalogIndexes  []CatalogIndex
	CatalogMetadata []CatalogIndex
	Actions         []Action
	ControlPanels   []ControlPanel
	Documents       []DocumentFile
}

type profileMeta struct {
	ID          string `json:"id" validate:"required,resourceid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

type catalogDecl struct {
	Indexes  []CatalogIndex `json:"indexes"`
	Metadata []CatalogIndex `json:"metadata"`
}

// Load reads the named profile from fsys. Layout under <name>/: profile.json,
// one file per record kind (JSON or YAML), plus behaviors/, types/ and
// documents/ directories with one file per record. All declarations pass
// through i18n-suffix stripping and validation before use.
func Load(fsys fs.FS, name string) (*Profile, apperrors.Error) {
	if _, err := fs.Stat(fsys, name); err != nil {
		return nil, ErrProfileNotFound.Suffix(name)
	}

	p := &Profile{}

	var meta profileMeta
	if ok, err := loadDecl(fsys, path.Join(name, "profile"), &meta); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrInvalidProfile.Msg("profile metadata missing").Suffix(name)
	}
	p.ID, p.Title, p.Description, p.Version = meta.ID, meta.Title, meta.Description, meta.Version

	if _, err := loadDecl(fsys, path.Join(name, "permissions"), &p.Permissions); err != nil {
		return nil, err
	}
	if _, err := loadDecl(fsys, path.Join(name, "roles"), &p.Roles); err != nil {
		return nil, err
	}
	if _, err := loadDecl(fsys, path.Join(name, "groups"), &p.Groups); err != nil {
		return nil, err
	}
	if _, err := loadDecl(fsys, path.Join(name, "users"), &p.Users); err != nil {
		return nil, err
	}
	if _, err := loadDecl(fsys, path.Join(name, "workflows"), &p.Workflows); err != nil {
		return nil, err
	}
	if _, err := loadDecl(fsys, path.Join(name, "actions"), &p.Actions); err != nil {
		return nil, err
	}
	if _, err := loadDecl(fsys, path.Join(name, "controlpanels"), &p.ControlPanels); err != nil {
		return nil, err
	}

	var catalog catalogDecl
	if _, err := loadDecl(fsys, path.Join(name, "catalog"), &catalog); err != nil {
		return nil, err
	}
	p.CatalogIndexes = catalog.Indexes
	p.CatalogMetadata = catalog.Metadata

	if err := loadEach(fsys, path.Join(name, "behaviors"), func(data []byte) apperrors.Error {
		var b Behavior
		if err := json.Unmarshal(data, &b); err != nil {
			return ErrInvalidProfile.MsgErr("bad behavior declaration", err)
		}
		p.Behaviors = append(p.Behaviors, b)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := loadEach(fsys, path.Join(name, "types"), func(data []byte) apperrors.Error {
		var t ContentType
		if err := json.Unmarshal(data, &t); err != nil {
			return ErrInvalidProfile.MsgErr("bad type declaration", err)
		}
		p.Types = append(p.Types, t)
		return nil
	}); err != nil {
		return nil, err
	}

	docs, aerr := loadDocuments(fsys, path.Join(name, "documents"))
	if aerr != nil {
		return nil, aerr
	}
	p.Documents = docs

	if aerr := p.Validate(); aerr != nil {
		return nil, aerr
	}
	return p, nil
}

// loadDecl reads <base>.json or <base>.yaml, strips i18n suffixes and decodes
// into out. Returns false when neither file exists.
func loadDecl(fsys fs.FS, base string, out any) (bool, apperrors.Error) {
	data, found, err := readDecl(fsys, base)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if jsonErr := json.Unmarshal(data, out); jsonErr != nil {
		return false, ErrInvalidProfile.MsgErr("bad declaration", jsonErr).Suffix(base)
	}
	return true, nil
}

// readDecl returns the i18n-stripped JSON form of a declaration file. YAML
// files are converted to JSON first.
func readDecl(fsys fs.FS, base string) ([]byte, bool, apperrors.Error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		data, err := fs.ReadFile(fsys, base+ext)
		if err != nil {
			continue
		}
		if ext != ".json" {
			data, err = sigyaml.YAMLToJSON(data)
			if err != nil {
				return nil, false, ErrInvalidProfile.MsgErr("bad yaml declaration", err).Suffix(base)
			}
		}
		stripped, serr := StripLanguageSuffixes(data)
		if serr != nil {
			return nil, false, ErrInvalidProfile.MsgErr("bad declaration", serr).Suffix(base)
		}
		return stripped, true, nil
	}
	return nil, false, nil
}

// loadEach feeds every declaration file in dir (sorted by name) to fn.
func loadEach(fsys fs.FS, dir string, fn func(data []byte) apperrors.Error) apperrors.Error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		// the directory is optional
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isDeclFile(e.Name()) {
			continue
		}
		names = append(names, strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(e.Name(), ".json"), ".yaml"), ".yml"))
	}
	sort.Strings(names)
	for _, n := range names {
		data, found, aerr := readDecl(fsys, path.Join(dir, n))
		if aerr != nil {
			return aerr
		}
		if !found {
			continue
		}
		if aerr := fn(data); aerr != nil {
			return aerr
		}
	}
	return nil
}

// loadDocuments reads the flat document file set. Names stay dot-joined; the
// importer derives tree structure from them.
func loadDocuments(fsys fs.FS, dir string) ([]DocumentFile, apperrors.Error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, nil
	}
	var docs []DocumentFile
	seen := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() || !isDeclFile(e.Name()) {
			continue
		}
		docName := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(e.Name(), ".json"), ".yaml"), ".yml")
		if seen[docName] {
			continue
		}
		seen[docName] = true
		data, found, aerr := readDecl(fsys, path.Join(dir, docName))
		if aerr != nil {
			return nil, aerr
		}
		if !found {
			continue
		}
		if aerr := validateDocumentDecl(data); aerr != nil {
			log.Warn().Str("document", docName).Err(aerr).Msg("skipping invalid document declaration")
			continue
		}
		docs = append(docs, DocumentFile{Name: docName, Data: data})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func isDeclFile(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
