package fsm

type TAState string

const (
	TANotHelping TAState = "not_helping_group"
	TAHelping    TAState = "helping_group"
)

type TAEvent string

const (
	TAHelpGroup    TAEvent = "help_group"
	TAHelpReceived TAEvent = "help_recieved"
)

var taTable = table[TAState, TAEvent]{
	{TANotHelping, TAHelpGroup}: TAHelping,
	{TAHelping, TAHelpGroup}:    TAHelping,
	{TAHelping, TAHelpReceived}: TANotHelping,
}

// TATransition returns the state reached from s on event e.
func TATransition(s TAState, e TAEvent) (TAState, error) {
	return taTable.next(s, e)
}

// TA tracks whether a TA is busy helping a group. It cycles for the whole
// session and has no final state.
type TA struct {
	state TAState
}

func NewTA() *TA {
	return &TA{state: TANotHelping}
}

func (t *TA) State() TAState { return t.state }

func (t *TA) Fire(e TAEvent) error {
	to, err := TATransition(t.state, e)
	if err != nil {
		return err
	}
	t.state = to
	return nil
}
