package pkg

// Action is a navigation command; its value is the button label.
type Action string

const (
	ActionFirst Action = "|<"
	ActionPrev  Action = "<"
	ActionNext  Action = ">"
	ActionLast  Action = ">|"
	ActionFlip  Action = "Flip"
	ActionQuit  Action = "Quit"
)

// NavigationActions are shown as buttons under the move list, in order.
var NavigationActions = []Action{ActionFirst, ActionPrev, ActionNext, ActionLast, ActionFlip}
