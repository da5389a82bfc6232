package usecase

import (
	"strings"

	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/adapter"
)

// Text is a message key plus positional arguments. An argument that is itself
// a Text is translated before being substituted.
type Text struct {
	Key  string
	Args []interface{}
}

func T(key string, args ...interface{}) Text {
	return Text{Key: key, Args: args}
}

// Render translates t with tr.
func (t Text) Render(tr adapter.Translator) string {
	if len(t.Args) == 0 {
		return tr.T(t.Key)
	}
	args := make([]interface{}, len(t.Args))
	for i, a := range t.Args {
		if nested, ok := a.(Text); ok {
			args[i] = nested.Render(tr)
			continue
		}
		args[i] = a
	}
	return tr.T(t.Key, args...)
}

// Button sends Data as callback data, or opens URL when set.
type Button struct {
	Label Text
	Data  string
	URL   string
}

// Notice is a one-line outcome appended under a screen.
type Notice struct {
	Text
	OK bool
}

// Reply is the screen a flow wants shown after a transition.
type Reply struct {
	Screen  Text
	Notice  *Notice
	Buttons [][]Button
}

// Render produces the message body and keyboard for a presenter.
func (r Reply) Render(tr adapter.Translator) (string, [][]adapter.InlineButton) {
	var sb strings.Builder
	sb.WriteString(r.Screen.Render(tr))
	if r.Notice != nil {
		sb.WriteString("\n\n")
		if r.Notice.OK {
			sb.WriteString("✅ ")
		} else {
			sb.WriteString("❌ ")
		}
		sb.WriteString(r.Notice.Render(tr))
	}

	rows := make([][]adapter.InlineButton, 0, len(r.Buttons))
	for _, row := range r.Buttons {
		out := make([]adapter.InlineButton, 0, len(row))
		for _, b := range row {
			out = append(out, adapter.InlineButton{Text: b.Label.Render(tr), Data: b.Data, URL: b.URL})
		}
		rows = append(rows, out)
	}
	return sb.String(), rows
}

// Transition is the result of a flow operation. Next is always the state to persist:
// on error it is the unchanged input state unless the operation resets the flow.
type Transition struct {
	Next  model.ConversationState
	Reply Reply
}

func stay(st model.ConversationState) Transition {
	return Transition{Next: st}
}

func backButton(data string) []Button {
	return []Button{{Label: T("common:button:back"), Data: data}}
}

// periodText formats a duration in days for display.
func periodText(days int) Text {
	return T("common:period:days", days)
}
