package rpc

import (
	"bytes"
	"context"

	"github.com/nucleus/osmix/gen/go/osmixpb"
	"github.com/nucleus/osmix/pkg/changeset"
	"github.com/nucleus/osmix/pkg/entitystore"
	"github.com/nucleus/osmix/pkg/progress"
)

// ChangesetServer implements osmixpb.ChangesetServiceServer over one
// in-progress changeset.Changeset. A fresh store (the result of
// Apply) is swapped in under cs once Apply succeeds, so later calls
// against the same ChangesetServer keep building on top of it.
type ChangesetServer struct {
	osmixpb.ChangesetServiceServer
	cs       *changeset.Changeset
	reporter *progress.Reporter
}

// NewChangesetServer returns a ChangesetServer building against base.
func NewChangesetServer(base *entitystore.Store, reporter *progress.Reporter) *ChangesetServer {
	return &ChangesetServer{cs: changeset.New(base, nil), reporter: reporter}
}

func (s *ChangesetServer) CreateNode(ctx context.Context, req *osmixpb.CreateNodeRequest) (*osmixpb.IDResponse, error) {
	id := s.nextScratchNodeID()
	v := changeset.NodeValue{ID: id, Lon: req.Lon, Lat: req.Lat, Tags: tagMap(req.TagKeys, req.TagVals)}
	if err := s.cs.CreateNode(v); err != nil {
		return &osmixpb.IDResponse{Err: err.Error()}, nil
	}
	return &osmixpb.IDResponse{ID: id}, nil
}

func (s *ChangesetServer) ModifyNode(ctx context.Context, req *osmixpb.ModifyNodeRequest) (*osmixpb.StatusResponse, error) {
	err := s.cs.ModifyNode(req.ID, func(v changeset.NodeValue) changeset.NodeValue {
		v.Lon, v.Lat = req.Lon, req.Lat
		if len(req.TagKeys) > 0 {
			v.Tags = tagMap(req.TagKeys, req.TagVals)
		}
		return v
	})
	return statusOf(err), nil
}

func (s *ChangesetServer) CreateWay(ctx context.Context, req *osmixpb.CreateWayRequest) (*osmixpb.IDResponse, error) {
	id := s.nextScratchWayID()
	v := changeset.WayValue{ID: id, Refs: req.Refs, Tags: tagMap(req.TagKeys, req.TagVals)}
	if err := s.cs.CreateWay(v); err != nil {
		return &osmixpb.IDResponse{Err: err.Error()}, nil
	}
	return &osmixpb.IDResponse{ID: id}, nil
}

func (s *ChangesetServer) ModifyWay(ctx context.Context, req *osmixpb.ModifyWayRequest) (*osmixpb.StatusResponse, error) {
	err := s.cs.ModifyWay(req.ID, func(v changeset.WayValue) changeset.WayValue {
		if len(req.Refs) > 0 {
			v.Refs = req.Refs
		}
		if len(req.TagKeys) > 0 {
			v.Tags = tagMap(req.TagKeys, req.TagVals)
		}
		return v
	})
	return statusOf(err), nil
}

func (s *ChangesetServer) CreateRelation(ctx context.Context, req *osmixpb.CreateRelationRequest) (*osmixpb.IDResponse, error) {
	id := s.nextScratchRelationID()
	v := changeset.RelationValue{ID: id, Members: membersOf(req.MemberKinds, req.MemberRefs, req.MemberRoles), Tags: tagMap(req.TagKeys, req.TagVals)}
	if err := s.cs.CreateRelation(v); err != nil {
		return &osmixpb.IDResponse{Err: err.Error()}, nil
	}
	return &osmixpb.IDResponse{ID: id}, nil
}

func (s *ChangesetServer) ModifyRelation(ctx context.Context, req *osmixpb.ModifyRelationRequest) (*osmixpb.StatusResponse, error) {
	err := s.cs.ModifyRelation(req.ID, func(v changeset.RelationValue) changeset.RelationValue {
		if len(req.MemberRefs) > 0 {
			v.Members = membersOf(req.MemberKinds, req.MemberRefs, req.MemberRoles)
		}
		if len(req.TagKeys) > 0 {
			v.Tags = tagMap(req.TagKeys, req.TagVals)
		}
		return v
	})
	return statusOf(err), nil
}

func (s *ChangesetServer) Delete(ctx context.Context, req *osmixpb.DeleteRequest) (*osmixpb.StatusResponse, error) {
	var err error
	switch entitystore.MemberKind(req.Kind) {
	case entitystore.MemberNode:
		err = s.cs.DeleteNode(req.ID)
	case entitystore.MemberWay:
		err = s.cs.DeleteWay(req.ID)
	case entitystore.MemberRelation:
		err = s.cs.DeleteRelation(req.ID)
	}
	return statusOf(err), nil
}

func (s *ChangesetServer) DeduplicateNodes(ctx context.Context, req *osmixpb.DeduplicateNodesRequest) (*osmixpb.DedupResponse, error) {
	stats, err := s.cs.DeduplicateNodes(req.NodeIDs)
	if err != nil {
		return &osmixpb.DedupResponse{Err: err.Error()}, nil
	}
	return &osmixpb.DedupResponse{MergedCount: int64(stats.NodesDeduplicated)}, nil
}

func (s *ChangesetServer) DeduplicateWays(ctx context.Context, req *osmixpb.DeduplicateWaysRequest) (*osmixpb.DedupResponse, error) {
	stats, err := s.cs.DeduplicateWays(req.WayIDs)
	if err != nil {
		return &osmixpb.DedupResponse{Err: err.Error()}, nil
	}
	return &osmixpb.DedupResponse{MergedCount: int64(stats.WaysDeduplicated)}, nil
}

func (s *ChangesetServer) CreateIntersections(ctx context.Context, req *osmixpb.CreateIntersectionsRequest) (*osmixpb.CreateIntersectionsResponse, error) {
	stats, err := s.cs.CreateIntersections(req.WayIDs)
	if err != nil {
		return &osmixpb.CreateIntersectionsResponse{Err: err.Error()}, nil
	}
	return &osmixpb.CreateIntersectionsResponse{
		NodesCreated: int64(stats.NodesCreated),
	}, nil
}

func (s *ChangesetServer) Apply(ctx context.Context, req *osmixpb.ApplyRequest) (*osmixpb.StatusResponse, error) {
	store, err := s.cs.Apply(ctx, s.reporter)
	if err != nil {
		return statusOf(err), nil
	}
	s.cs = changeset.New(store, nil)
	return &osmixpb.StatusResponse{OK: true}, nil
}

func (s *ChangesetServer) ToOSC(ctx context.Context, req *osmixpb.ToOSCRequest) (*osmixpb.ToOSCResponse, error) {
	var buf bytes.Buffer
	if err := s.cs.ToOSC(&buf, changeset.OSCOptions{Augmented: req.Augmented}); err != nil {
		return &osmixpb.ToOSCResponse{Err: err.Error()}, nil
	}
	return &osmixpb.ToOSCResponse{XML: buf.Bytes()}, nil
}

// nextScratchNodeID/nextScratchWayID/nextScratchRelationID hand
// CreateNode/CreateWay/CreateRelation the id of every entity they
// create: the Create*Request messages carry no id, so each create takes
// the next negative value (-1, -2, ...) of a process-wide counter per
// kind, matching every format adapter's negative-id convention.
var scratchNodeID, scratchWayID, scratchRelationID int64

func (s *ChangesetServer) nextScratchNodeID() int64 {
	scratchNodeID--
	return scratchNodeID
}

func (s *ChangesetServer) nextScratchWayID() int64 {
	scratchWayID--
	return scratchWayID
}

func (s *ChangesetServer) nextScratchRelationID() int64 {
	scratchRelationID--
	return scratchRelationID
}

func membersOf(kinds, refs []int64, roles []string) []changeset.RelationMember {
	if len(refs) == 0 {
		return nil
	}
	members := make([]changeset.RelationMember, len(refs))
	for i, ref := range refs {
		var kind entitystore.MemberKind
		if i < len(kinds) {
			kind = entitystore.MemberKind(kinds[i])
		}
		var role string
		if i < len(roles) {
			role = roles[i]
		}
		members[i] = changeset.RelationMember{Kind: kind, Ref: ref, Role: role}
	}
	return members
}

func tagMap(keys, vals []string) map[string]string {
	if len(keys) == 0 {
		return nil
	}
	m := make(map[string]string, len(keys))
	for i, k := range keys {
		if i < len(vals) {
			m[k] = vals[i]
		}
	}
	return m
}

func statusOf(err error) *osmixpb.StatusResponse {
	if err != nil {
		return &osmixpb.StatusResponse{Err: err.Error()}
	}
	return &osmixpb.StatusResponse{OK: true}
}
