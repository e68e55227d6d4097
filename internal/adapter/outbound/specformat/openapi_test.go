package specformat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/apiforge/internal/adapter/outbound/specformat"
	"github.com/i2y/apiforge/internal/domain"
)

const usersOpenAPI = `
openapi: 3.0.3
info: {title: Users, version: "1.0"}
servers:
  - url: https://api.example.com/v1/
security:
  - bearerAuth: []
components:
  securitySchemes:
    bearerAuth:
      type: http
      scheme: bearer
  schemas:
    User:
      type: object
      properties:
        id: {type: integer}
paths:
  /users/{id}:
    parameters:
      - name: id
        in: path
        required: true
        schema: {type: string}
    get:
      summary: Get a user
      tags: [users]
      parameters:
        - name: id
          in: path
          required: true
          schema: {type: integer}
        - name: verbose
          in: query
          schema: {type: boolean}
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/User'
    delete:
      security: []
      responses:
        "204": {description: gone}
  /users:
    post:
      description: Create a user
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [name]
              properties:
                name: {type: string}
                age: {type: number}
      responses:
        "201": {description: created}
  /avatars:
    put:
      requestBody:
        content:
          multipart/form-data:
            schema:
              type: object
              properties:
                image: {type: string, format: binary}
      responses:
        "204": {description: stored}
    head:
      responses:
        "200": {description: ok}
`

func TestParse_OpenAPI3MinimalDocument(t *testing.T) {
	raw := `{"openapi":"3.0.0","paths":{"/users/{id}":{"get":{"parameters":[{"name":"id","in":"path","required":true,"schema":{"type":"integer"}}]}}}}`

	doc, err := specformat.Parse([]byte(raw), "")
	require.NoError(t, err)
	require.Len(t, doc.Endpoints, 1)

	ep := doc.Endpoints[0]
	assert.Equal(t, "/users/{id}", ep.Path)
	assert.Equal(t, domain.MethodGet, ep.Method)
	require.Len(t, ep.Parameters, 1)
	assert.Equal(t, domain.Parameter{Name: "id", Type: domain.TypeInteger, Source: domain.SourcePath, Required: true}, ep.Parameters[0])
}

func TestParse_OpenAPI3(t *testing.T) {
	doc, err := specformat.Parse([]byte(usersOpenAPI), "")
	require.NoError(t, err)
	assert.Equal(t, specformat.FormatOpenAPI3, doc.Format)
	assert.Equal(t, "https://api.example.com/v1", doc.BaseURL)
	require.NotNil(t, doc.Auth)
	assert.Equal(t, domain.AuthBearer, doc.Auth.Type)
	assert.Contains(t, doc.Schemas, "User")

	keys := make([]string, len(doc.Endpoints))
	for i, ep := range doc.Endpoints {
		keys[i] = ep.Key().String()
	}
	// Sorted paths, fixed method order, HEAD skipped.
	assert.Equal(t, []string{"PUT /avatars", "POST /users", "GET /users/{id}", "DELETE /users/{id}"}, keys)

	t.Run("multipart body becomes form parameters", func(t *testing.T) {
		image, ok := doc.Endpoints[0].Parameters.Get("image")
		require.True(t, ok)
		assert.Equal(t, domain.SourceForm, image.Source)
		assert.Equal(t, domain.TypeFile, image.Type)
	})

	t.Run("json body properties sorted with required list", func(t *testing.T) {
		create := doc.Endpoints[1]
		assert.Equal(t, "Create a user", create.Description)
		assert.Equal(t, []string{"age", "name"}, create.Parameters.Names())
		age, _ := create.Parameters.Get("age")
		name, _ := create.Parameters.Get("name")
		assert.Equal(t, domain.TypeFloat, age.Type)
		assert.False(t, age.Required)
		assert.True(t, name.Required)
		assert.Equal(t, domain.SourceBody, name.Source)
		assert.NotNil(t, create.RequestBodySchema)
		assert.True(t, create.AuthRequired)
	})

	t.Run("operation parameter overrides path item parameter", func(t *testing.T) {
		get := doc.Endpoints[2]
		assert.Equal(t, "Get a user", get.Description)
		assert.Equal(t, []string{"users"}, get.Tags)
		id, _ := get.Parameters.Get("id")
		assert.Equal(t, domain.TypeInteger, id.Type)
		verbose, _ := get.Parameters.Get("verbose")
		assert.Equal(t, domain.Parameter{Name: "verbose", Type: domain.TypeBoolean, Source: domain.SourceQuery}, verbose)
		assert.Contains(t, get.ResponseSchema, "properties")
		assert.True(t, get.AuthRequired)
	})

	t.Run("inherited path item parameter and empty security", func(t *testing.T) {
		del := doc.Endpoints[3]
		id, _ := del.Parameters.Get("id")
		assert.Equal(t, domain.TypeString, id.Type)
		assert.False(t, del.AuthRequired)
	})
}

func TestParse_OpenAPI3UndeclaredPlaceholderIsBackfilled(t *testing.T) {
	raw := `{"openapi":"3.0.0","paths":{"/orgs/{org}/repos":{"get":{"parameters":[{"name":"org","in":"query"}]}}}}`

	doc, err := specformat.Parse([]byte(raw), "")
	require.NoError(t, err)
	require.Len(t, doc.Endpoints, 1)
	org, ok := doc.Endpoints[0].Parameters.Get("org")
	require.True(t, ok)
	assert.Equal(t, domain.SourcePath, org.Source)
	assert.True(t, org.Required)
}

func TestParse_OpenAPI3LoadFailure(t *testing.T) {
	raw := `{"openapi":"3.0.0","paths":{"/a":{"get":{"parameters":"not-a-list"}}}}`
	_, err := specformat.Parse([]byte(raw), "")
	var perr *domain.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "openapi", perr.Format)
}

const petsSwagger = `
swagger: "2.0"
info: {title: Pets, version: "1"}
host: pets.example.com
basePath: /api
schemes: [https]
securityDefinitions:
  key:
    type: apiKey
    name: X-API-Key
    in: header
paths:
  /pets/{petId}/photo:
    post:
      consumes: [multipart/form-data]
      parameters:
        - name: petId
          in: path
          required: true
          type: integer
        - name: file
          in: formData
          type: file
        - name: caption
          in: formData
          type: string
          required: true
      responses:
        "200": {description: ok}
  /pets:
    post:
      security:
        - key: []
      parameters:
        - name: pet
          in: body
          required: true
          schema:
            type: object
            properties:
              name: {type: string}
      responses:
        "201": {description: created}
`

func TestParse_Swagger2(t *testing.T) {
	doc, err := specformat.Parse([]byte(petsSwagger), "")
	require.NoError(t, err)
	assert.Equal(t, specformat.FormatSwagger2, doc.Format)
	assert.Equal(t, "https://pets.example.com/api", doc.BaseURL)
	require.NotNil(t, doc.Auth)
	assert.Equal(t, domain.AuthAPIKey, doc.Auth.Type)
	assert.Equal(t, map[string]string{"X-API-Key": ""}, doc.Auth.Headers)
	require.Len(t, doc.Endpoints, 2)

	create := doc.Endpoints[0]
	assert.Equal(t, "/pets", create.Path)
	assert.True(t, create.AuthRequired)
	pet, ok := create.Parameters.Get("pet")
	require.True(t, ok)
	assert.Equal(t, domain.Parameter{Name: "pet", Type: domain.TypeObject, Source: domain.SourceBody, Required: true}, pet)
	assert.NotNil(t, create.RequestBodySchema)

	upload := doc.Endpoints[1]
	assert.False(t, upload.AuthRequired)
	petID, _ := upload.Parameters.Get("petId")
	assert.Equal(t, domain.TypeInteger, petID.Type)
	assert.Equal(t, domain.SourcePath, petID.Source)
	file, _ := upload.Parameters.Get("file")
	assert.Equal(t, domain.SourceBody, file.Source)
	assert.Equal(t, domain.TypeFile, file.Type)
	caption, _ := upload.Parameters.Get("caption")
	assert.Equal(t, domain.SourceBody, caption.Source)
	assert.True(t, caption.Required)
}
