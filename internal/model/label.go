package model

// Label is a colored tag attachable to conversations. Deleting a label
// removes it from every conversation that references it.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// PresetLabelColors is the default palette offered by the console. Custom
// colors are accepted as well.
var PresetLabelColors = []string{
	"#25D366",
	"#FFB800",
	"#FF5722",
	"#2196F3",
	"#4CAF50",
	"#E91E63",
	"#9C27B0",
	"#00BCD4",
	"#795548",
	"#607D8B",
}

// MaxLabelNameLen bounds label names, matching the console input limit.
const MaxLabelNameLen = 30
