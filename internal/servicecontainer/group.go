package servicecontainer

// group holds the started members of one named group and the references
// observing it. Groups are created lazily and live as long as the container.
type group struct {
	name       ServiceName
	members    []*controller
	references []*referenceBinding
}

// referenceBinding ties one GroupReference of a started service to a group.
type referenceBinding struct {
	owner *controller
	group ServiceName
	ref   GroupReference
}

func (g *group) addMember(c *controller) {
	g.members = append(g.members, c)
}

func (g *group) removeMember(c *controller) bool {
	for i, m := range g.members {
		if m == c {
			g.members = append(g.members[:i], g.members[i+1:]...)
			return true
		}
	}
	return false
}

func (g *group) addReference(b *referenceBinding) {
	g.references = append(g.references, b)
}

func (g *group) removeReference(b *referenceBinding) {
	for i, r := range g.references {
		if r == b {
			g.references = append(g.references[:i], g.references[i+1:]...)
			return
		}
	}
}

func (b *referenceBinding) notify(member ServiceName, value any, added bool) {
	b.owner.post(message{
		kind: msgGroupUpdate,
		update: groupUpdate{
			binding: b,
			member:  member,
			value:   value,
			added:   added,
		},
	})
}
