package entitystore

import "testing"

func TestRelationColumnSortsAndPreservesMembers(t *testing.T) {
	rb := NewRelationBuilder()
	rb.Add(50, []Member{{Kind: MemberWay, Ref: 7, Role: 1}}, nil)
	rb.Add(10, []Member{{Kind: MemberNode, Ref: 3, Role: 2}}, nil)
	rels, err := rb.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if rels.GetByIndex(0) != 10 || rels.GetByIndex(1) != 50 {
		t.Fatalf("relations not sorted: [%d,%d]", rels.GetByIndex(0), rels.GetByIndex(1))
	}
	idx, _ := rels.GetByID(50)
	members := rels.Members(idx)
	if len(members) != 1 || members[0].Ref != 7 || members[0].Kind != MemberWay {
		t.Fatalf("relation 50 members corrupted after sort: %+v", members)
	}
}

func TestRelationColumnIncidence(t *testing.T) {
	rb := NewRelationBuilder()
	rb.Add(1, []Member{{Kind: MemberWay, Ref: 100}}, nil)
	rb.Add(2, []Member{{Kind: MemberWay, Ref: 100}}, nil)
	rels, err := rb.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	containing := rels.RelationsContaining(MemberWay, 100)
	if len(containing) != 2 {
		t.Fatalf("RelationsContaining(way,100) = %v, want 2 relations", containing)
	}
}

func TestRelationColumnCheckClosureDanglingMember(t *testing.T) {
	nodes := buildNodes(t, nil)
	wb := NewWayBuilder()
	ways, err := wb.Finalize(nodes)
	if err != nil {
		t.Fatalf("way Finalize: %v", err)
	}
	rb := NewRelationBuilder()
	rb.Add(1, []Member{{Kind: MemberWay, Ref: 999}}, nil)
	rels, err := rb.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := rels.CheckClosure(0, nodes, ways, rels); err == nil {
		t.Fatal("expected DanglingRef for missing way member")
	}
}
