package server_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/require"
)

func TestOpenAPIYamlEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestServer(t)

	resp := doJSON(t, env.url("/openapi.yaml"), http.MethodGet, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(resp.Header.Get("Content-Type"), "yaml"))

	raw := string(readBody(t, resp.Body))
	require.Contains(t, raw, "openapi:")
	require.Contains(t, raw, "/cards:")
	require.Contains(t, raw, "/cards/{cardId}/comments/{id}:")
	require.Contains(t, raw, "/ws:")
	require.Contains(t, raw, "bearerFormat: JWT")
}

func TestOpenAPIDocumentOperations(t *testing.T) {
	t.Parallel()

	env := newTestServer(t)
	doc := env.app.OpenAPI()

	ids := map[string]bool{}
	for _, item := range doc.Paths {
		if item.Get != nil {
			ids[item.Get.OperationID] = true
		}
		if item.Post != nil {
			ids[item.Post.OperationID] = true
		}
		if item.Put != nil {
			ids[item.Put.OperationID] = true
		}
		if item.Patch != nil {
			ids[item.Patch.OperationID] = true
		}
		if item.Delete != nil {
			ids[item.Delete.OperationID] = true
		}
	}
	for _, id := range []string{
		"listCards", "getCard", "createCard", "updateCard", "updateCardPatch", "deleteCard",
		"createComment", "updateComment", "updateCommentPatch", "deleteComment", "websocketEvents",
	} {
		require.Truef(t, ids[id], "missing operation %s", id)
	}
	require.Equal(t, "201", firstResponseCode(doc.Paths["/cards/{cardId}/comments"].Post.Responses))
}

func firstResponseCode(responses map[string]*huma.Response) string {
	for code := range responses {
		if strings.HasPrefix(code, "2") {
			return code
		}
	}
	return ""
}
