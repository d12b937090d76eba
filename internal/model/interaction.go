package model

// Interaction is a user's reaction to a blog. The zero value means no reaction.
type Interaction string

const (
	InteractionNone Interaction = ""
	Like            Interaction = "like"
	Dislike         Interaction = "dislike"
)

// Valid reports whether i names a reaction the backend can toggle.
func (i Interaction) Valid() bool {
	return i == Like || i == Dislike
}

func (i Interaction) String() string {
	if i == InteractionNone {
		return "none"
	}
	return string(i)
}
