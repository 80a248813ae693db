package tasks

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	// StatusDeleted is a tombstone: applying it removes the task.
	StatusDeleted Status = "deleted"
)

func ParseStatus(v string) (Status, bool) {
	switch Status(v) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusDeleted:
		return Status(v), true
	default:
		return "", false
	}
}

const (
	ToolTaskCreate = "TaskCreate"
	ToolTaskUpdate = "TaskUpdate"
	ToolTaskList   = "TaskList"
	ToolTaskGet    = "TaskGet"
)

func IsTaskTool(name string) bool {
	switch name {
	case ToolTaskCreate, ToolTaskUpdate, ToolTaskList, ToolTaskGet:
		return true
	default:
		return false
	}
}

type Task struct {
	ID          string         `json:"id"`
	Subject     string         `json:"subject"`
	Description string         `json:"description"`
	Status      Status         `json:"status"`
	ActiveForm  string         `json:"active_form,omitempty"`
	Owner       string         `json:"owner,omitempty"`
	Blocks      []string       `json:"blocks"`
	BlockedBy   []string       `json:"blocked_by"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (t Task) Clone() Task {
	out := t
	out.Blocks = append([]string{}, t.Blocks...)
	out.BlockedBy = append([]string{}, t.BlockedBy...)
	out.Metadata = cloneMap(t.Metadata)
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Update is a partial change; nil fields are left untouched.
type Update struct {
	Subject      *string
	Description  *string
	Status       *Status
	ActiveForm   *string
	Owner        *string
	AddBlocks    []string
	AddBlockedBy []string
	Metadata     map[string]any
}

type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// Invocation is a task-tool call awaiting its result.
type Invocation struct {
	Name  string
	Input map[string]any
}
