package grpc

import (
	"github.com/google/uuid"

	"github.com/resdex/resdex/internal/rpc"
)

// WatchUsers pushes a full snapshot when the stream opens and again after
// every profile change, until the client goes away or the hub drops it.
func (s *GRPCServer) WatchUsers(req *rpc.WatchUsersRequest, stream rpc.WatchUsersServer) error {
	ctx := stream.Context()

	signals, cancel, err := s.hub.Subscribe(uuid.NewString())
	if err != nil {
		s.logger.Warn(ctx, "watcher rejected", "error", err)
		return toStatus(err)
	}
	defer cancel()

	s.metrics.WatcherAdded()
	defer s.metrics.WatcherRemoved()

	push := func() error {
		users, err := s.profiles.Snapshot(ctx, req.Limit)
		if err != nil {
			return toStatus(err)
		}
		if err := stream.Send(&rpc.UsersSnapshot{Users: users}); err != nil {
			return err
		}
		s.metrics.RecordSnapshotPush(len(users))
		return nil
	}

	if err := push(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			if err := push(); err != nil {
				return err
			}
		}
	}
}
