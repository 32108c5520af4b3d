package servicecontainer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_ReferenceReplayAndUpdates(t *testing.T) {
	c := newTestContainer(t)
	partitions := TypedServiceName("group", "partitions")

	for _, id := range []string{"p1", "p2"} {
		_, err := await(t, c.CreateService(NewServiceName(id), newTestService(id, nil)).
			Group(partitions).Install())
		require.NoError(t, err)
	}

	ref := &recordingReference{}
	_, err := await(t, c.CreateService(NewServiceName("router"), newTestService("router", nil)).
		GroupReference(partitions, ref).Install())
	require.NoError(t, err)

	eventually(t, func() bool { return len(ref.snapshot()) == 2 }, "existing members should be replayed")
	assert.Equal(t, []string{"add:p1=value-p1", "add:p2=value-p2"}, ref.snapshot())

	_, err = await(t, c.CreateService(NewServiceName("p3"), newTestService("p3", nil)).
		Group(partitions).Install())
	require.NoError(t, err)
	eventually(t, func() bool { return len(ref.snapshot()) == 3 }, "new member should be announced")

	_, err = await(t, c.RemoveService(NewServiceName("p1")))
	require.NoError(t, err)
	eventually(t, func() bool { return len(ref.snapshot()) == 4 }, "leaving member should be announced")
	assert.Equal(t, "remove:p1=value-p1", ref.snapshot()[3])

	_, err = await(t, c.RemoveService(NewServiceName("router")))
	require.NoError(t, err)
	assert.Equal(t, int32(1), ref.uninjected.Load())

	_, err = await(t, c.CreateService(NewServiceName("p4"), newTestService("p4", nil)).
		Group(partitions).Install())
	require.NoError(t, err)
	assert.Len(t, ref.snapshot(), 4, "removed reference must not observe later members")
}

func TestGroup_MemberAlsoReferencesItsGroup(t *testing.T) {
	c := newTestContainer(t)
	members := TypedServiceName("group", "members")
	ref := &recordingReference{}

	_, err := await(t, c.CreateService(NewServiceName("self"), newTestService("self", nil)).
		Group(members).
		GroupReference(members, ref).
		Install())
	require.NoError(t, err)

	eventually(t, func() bool { return len(ref.snapshot()) == 1 }, "member should see itself")
	assert.Equal(t, "add:self=value-self", ref.snapshot()[0])
}

func TestReferenceCollection(t *testing.T) {
	var refs ReferenceCollection[string]

	refs.AddValue(NewServiceName("b"), "B")
	refs.AddValue(NewServiceName("a"), "A")
	refs.AddValue(NewServiceName("n"), 42)

	assert.Equal(t, 2, refs.Len())
	assert.Equal(t, []ServiceName{NewServiceName("a"), NewServiceName("b")}, refs.Names())

	v, ok := refs.Get(NewServiceName("a"))
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	refs.RemoveValue(NewServiceName("a"), "A")
	assert.Equal(t, 1, refs.Len())

	refs.Uninject()
	assert.Equal(t, 0, refs.Len())
}
