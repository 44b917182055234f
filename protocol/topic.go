package protocol

import "strings"

// DefaultPrefix is prepended to every topic.
const DefaultPrefix = "ttm4115/project/team10/api/v1"

// Wildcard matches any number of trailing topic levels.
const Wildcard = "#"

// Slug derives a topic-safe identifier from a display name.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// Topics resolves the topic catalog under a prefix.
type Topics struct {
	Prefix string
}

// NewTopics returns a resolver for prefix, or DefaultPrefix if prefix is empty.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{Prefix: strings.TrimSuffix(prefix, "/")}
}

func (t Topics) join(parts ...string) string {
	return t.Prefix + "/" + strings.Join(parts, "/")
}

func (t Topics) Tasks() string { return t.join("tasks") }

func (t Topics) TasksLate(group string) string { return t.join("tasks", "late", Slug(group)) }

func (t Topics) Request(group string) string { return t.join("request", Slug(group)) }

func (t Topics) Present(group string) string { return t.join("present", Slug(group)) }

func (t Topics) Done(group string) string { return t.join("done", Slug(group)) }

func (t Topics) Progress(group string) string { return t.join("progress", Slug(group)) }

func (t Topics) QueueNumber(group string) string { return t.join("queue_number", Slug(group)) }

func (t Topics) GettingHelp(group string) string { return t.join("getting_help", Slug(group)) }

func (t Topics) ReceivedHelp(group string) string { return t.join("received_help", Slug(group)) }

// TAUpdate is the broadcast topic shared by all TAs.
func (t Topics) TAUpdate() string { return t.join("ta_update") }

// TA is the private topic of one TA.
func (t Topics) TA(ta string) string { return t.join("ta", Slug(ta)) }

func (t Topics) TAReadyRequest() string { return t.join("ta_ready", "request") }

func (t Topics) TAReadyAll() string { return t.join("ta_ready", "response", "all") }

func (t Topics) TAReady(group string) string { return t.join("ta_ready", "response", Slug(group)) }

// All returns a pattern matching every topic under base, e.g. All("request")
// matches request/team_1 and request/team_2.
func (t Topics) All(base string) string {
	return t.join(base, Wildcard)
}
