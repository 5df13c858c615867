package profile

import (
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/json-iterator/go"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

const resourceIdRegex = `^[a-z0-9]([-._a-z0-9]*[a-z0-9])?$`
const resourceIdMaxLength = 128

var resourceIdRe = regexp.MustCompile(resourceIdRegex)

// resourceIdValidator checks record ids against our naming convention.
func resourceIdValidator(fl validator.FieldLevel) bool {
	str := fl.Field().String()
	if len(str) > resourceIdMaxLength {
		return false
	}
	return resourceIdRe.MatchString(str)
}

var validIndexTypes = []types.IndexType{
	types.IndexTypeString,
	types.IndexTypeInt,
	types.IndexTypeBool,
	types.IndexTypeDate,
	types.IndexTypeUUID,
	types.IndexTypeStringList,
	types.IndexTypeUUIDList,
	types.IndexTypeFullText,
}

// indexTypeValidator checks a catalog index's declared column type.
func indexTypeValidator(fl validator.FieldLevel) bool {
	return slices.Contains(validIndexTypes, types.IndexType(fl.Field().String()))
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterValidation("resourceid", resourceIdValidator)
	validate.RegisterValidation("indextype", indexTypeValidator)
}

// Validate checks every record in the profile against the declared
// constraints. The first failing record aborts the load.
func (p *Profile) Validate() apperrors.Error {
	check := func(kind string, v any) apperrors.Error {
		if err := validate.Struct(v); err != nil {
			return ErrInvalidProfile.MsgErr("invalid "+kind+" declaration", err)
		}
		return nil
	}

	if err := check("profile", profileMeta{ID: p.ID, Title: p.Title}); err != nil {
		return err
	}
	for _, r := range p.Permissions {
		if err := check("permission", r); err != nil {
			return err
		}
	}
	for _, r := range p.Roles {
		if err := check("role", r); err != nil {
			return err
		}
	}
	for _, r := range p.Groups {
		if err := check("group", r); err != nil {
			return err
		}
	}
	for _, r := range p.Users {
		if err := check("user", r); err != nil {
			return err
		}
	}
	for _, r := range p.Workflows {
		if err := check("workflow", r); err != nil {
			return err
		}
	}
	for _, r := range p.Behaviors {
		if err := check("behavior", r); err != nil {
			return err
		}
	}
	for _, r := range p.Types {
		if err := check("type", r); err != nil {
			return err
		}
	}
	for _, r := range p.CatalogIndexes {
		if err := check("catalog index", r); err != nil {
			return err
		}
	}
	for _, r := range p.CatalogMetadata {
		if err := check("catalog metadata", r); err != nil {
			return err
		}
	}
	for _, r := range p.Actions {
		if err := check("action", r); err != nil {
			return err
		}
	}
	for _, r := range p.ControlPanels {
		if err := check("control panel", r); err != nil {
			return err
		}
	}
	return nil
}

// documentSchema constrains the free-form document declarations: identity
// fields must be strings, position an integer; everything else is payload.
const documentSchema = `{
	"type": "object",
	"properties": {
		"uuid": {"type": "string"},
		"id": {"type": "string", "pattern": "` + resourceIdRegex + `"},
		"type": {"type": "string"},
		"title": {"type": "string"},
		"owner": {"type": "string"},
		"review_state": {"type": "string"},
		"language": {"type": "string"},
		"position": {"type": "integer", "minimum": 0}
	}
}`

var documentSchemaCompiled *jsonschema.Schema

func init() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("document.json", strings.NewReader(documentSchema)); err != nil {
		panic(err)
	}
	documentSchemaCompiled = c.MustCompile("document.json")
}

func validateDocumentDecl(data []byte) apperrors.Error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return ErrInvalidProfile.MsgErr("bad document declaration", err)
	}
	if err := documentSchemaCompiled.Validate(v); err != nil {
		return ErrInvalidProfile.MsgErr("bad document declaration", err)
	}
	return nil
}
