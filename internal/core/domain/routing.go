package domain

import (
	"regexp"
	"strings"
)

// Route identifies which generation backend serves a request.
type Route string

// Backend routes. Adding a backend means adding a variant here and a
// case in ClassifyModel; nothing else should inspect model strings.
const (
	// RouteCloud sends the structured history to the hosted API.
	RouteCloud Route = "cloud"

	// RouteLocal sends a flattened prompt to the local inference host.
	RouteLocal Route = "local"

	// RouteLocalRAG augments the flattened prompt with retrieved
	// context before sending it to the retrieval-enhanced endpoint.
	RouteLocalRAG Route = "local+rag"
)

// LocalHistoryLimit caps how many prior messages local backends see.
// Their context windows are small, so only the last few exchanges are
// flattened into the prompt. Cloud backends receive the full history.
const LocalHistoryLimit = 6

// localPrefix marks a model identifier as locally hosted.
const localPrefix = "local-"

// ragSuffix marks a local model identifier as retrieval-augmented.
const ragSuffix = "-rag"

// tagPattern recognises the trailing version/tag segment of a local
// model identifier, e.g. "8b" in "deepseek-r1-8b" or "latest" in
// "mistral-latest".
var tagPattern = regexp.MustCompile(`^(.+)-([0-9]+[a-z]*|latest|instruct|chat|code)$`)

// RoutingDecision is the result of classifying a model identifier.
// It is derived per request and never stored.
type RoutingDecision struct {
	// Route is the backend the request dispatches to.
	Route Route

	// BackendModel is the model name the backend itself understands.
	// For cloud models this is the identifier unchanged; for local
	// models the prefix and suffix are stripped and the trailing tag
	// is rejoined with a colon ("deepseek-r1:8b").
	BackendModel string

	// HistoryLimit caps the number of prior messages included in the
	// prompt. Zero means unbounded.
	HistoryLimit int

	// TagMatched is false when a local identifier did not match the
	// expected name-tag pattern and was passed through unchanged.
	// Callers should warn but never fail on this.
	TagMatched bool
}

// ClassifyModel maps a model identifier to a routing decision.
// Identifiers with the "local-" prefix route to the local backend; a
// "-rag" suffix additionally enables retrieval augmentation. Anything
// else is a cloud model. Unknown-but-plausible names never error.
func ClassifyModel(modelID string) RoutingDecision {
	if !strings.HasPrefix(modelID, localPrefix) {
		return RoutingDecision{
			Route:        RouteCloud,
			BackendModel: modelID,
			TagMatched:   true,
		}
	}

	route := RouteLocal
	name := strings.TrimPrefix(modelID, localPrefix)
	if strings.HasSuffix(name, ragSuffix) {
		route = RouteLocalRAG
		name = strings.TrimSuffix(name, ragSuffix)
	}

	backend, matched := localBackendModel(name)
	return RoutingDecision{
		Route:        route,
		BackendModel: backend,
		HistoryLimit: LocalHistoryLimit,
		TagMatched:   matched,
	}
}

// LocalModelID converts a host tag such as "deepseek-r1:8b" into the
// routable identifier "local-deepseek-r1-8b". It is the inverse of the
// tag reconstruction in ClassifyModel.
func LocalModelID(tag string) string {
	return localPrefix + strings.ReplaceAll(tag, ":", "-")
}

// localBackendModel converts a stripped local identifier to the name
// the inference host expects, reinterpreting the final hyphenated
// segment as a colon-joined tag. Identifiers that do not match the
// pattern are returned unchanged.
func localBackendModel(name string) (string, bool) {
	m := tagPattern.FindStringSubmatch(name)
	if m == nil {
		return name, false
	}
	return m[1] + ":" + m[2], true
}
