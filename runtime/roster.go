package runtime

import (
	"sort"

	"chat-relay/contract"
	"chat-relay/domain"

	"github.com/samber/lo"
)

// BotName is the fixed synthetic participant used for generated replies.
// It is always the first roster entry, whether or not a real member
// picked the same name.
const BotName = "Gemini"

// Roster derives the ordered member list of a room from the registry.
// It is pure given the registry's current state and is recomputed on every
// membership change, never cached.
type Roster struct {
	registry contract.IRegistry
}

func NewRoster(registry contract.IRegistry) *Roster {
	return &Roster{registry: registry}
}

// Resolve returns the deduplicated display names of a room, bot first and
// exactly once, followed by the member names in lexicographic order.
func (r *Roster) Resolve(roomName string) []string {
	members := r.registry.MembersOf(roomName)

	names := lo.Uniq(lo.Map(members, func(m domain.Member, _ int) string {
		return m.DisplayName
	}))
	names = lo.Filter(names, func(name string, _ int) bool {
		return name != BotName
	})
	sort.Strings(names)

	return append([]string{BotName}, names...)
}
