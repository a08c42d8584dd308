// Package mongostore implements internal/store.Store against a real
// MongoDB deployment via go.mongodb.org/mongo-driver, binding the six
// document collections: devices, identities, graph_nodes, graph_links,
// topology, reachability_cache.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/servak/topology-manager/internal/domain"
	"github.com/servak/topology-manager/internal/store"
)

type Store struct {
	client *mongo.Client

	devices    *mongo.Collection
	identities *mongo.Collection
	graphNodes *mongo.Collection
	graphLinks *mongo.Collection
	topology   *mongo.Collection
	reachCache *mongo.Collection
}

// Connect dials MongoDB at uri and binds the database dbName's six
// collections: devices, identities, graph_nodes, graph_links, topology,
// reachability_cache.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	db := client.Database(dbName)
	return &Store{
		client:     client,
		devices:    db.Collection("devices"),
		identities: db.Collection("identities"),
		graphNodes: db.Collection("graph_nodes"),
		graphLinks: db.Collection("graph_links"),
		topology:   db.Collection("topology"),
		reachCache: db.Collection("reachability_cache"),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) GetDevice(ctx context.Context, id string) (*domain.Device, error) {
	var d domain.Device
	if err := s.devices.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("mongostore: get device: %w", err)
	}
	return &d, nil
}

func (s *Store) GetDeviceByHost(ctx context.Context, host string) (*domain.Device, error) {
	return s.findOneDevice(ctx, bson.M{"host": host})
}

func (s *Store) GetDeviceByDisplayNameNoHost(ctx context.Context, displayName string) (*domain.Device, error) {
	return s.findOneDevice(ctx, bson.M{"display_name": displayName, "host": ""})
}

func (s *Store) GetDeviceByDisplayName(ctx context.Context, displayName string) (*domain.Device, error) {
	return s.findOneDevice(ctx, bson.M{"display_name": displayName, "host": bson.M{"$ne": ""}})
}

func (s *Store) FindDeviceByAlternateIP(ctx context.Context, ip string) (*domain.Device, error) {
	return s.findOneDevice(ctx, bson.M{"alternate_ips": ip})
}

func (s *Store) findOneDevice(ctx context.Context, filter bson.M) (*domain.Device, error) {
	var d domain.Device
	if err := s.devices.FindOne(ctx, filter).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("mongostore: find device: %w", err)
	}
	return &d, nil
}

func (s *Store) InsertDevice(ctx context.Context, d *domain.Device) (string, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if _, err := s.devices.InsertOne(ctx, d); err != nil {
		return "", fmt.Errorf("mongostore: insert device: %w", err)
	}
	return d.ID, nil
}

func (s *Store) UpdateDevice(ctx context.Context, d *domain.Device) error {
	_, err := s.devices.ReplaceOne(ctx, bson.M{"_id": d.ID}, d)
	if err != nil {
		return fmt.Errorf("mongostore: update device: %w", err)
	}
	return nil
}

func (s *Store) ListDevicesByStatus(ctx context.Context, statuses ...domain.DeviceStatus) ([]*domain.Device, error) {
	cur, err := s.devices.Find(ctx, bson.M{"status": bson.M{"$in": statuses}})
	if err != nil {
		return nil, fmt.Errorf("mongostore: list devices: %w", err)
	}
	defer cur.Close(ctx)

	var out []*domain.Device
	for cur.Next(ctx) {
		var d domain.Device
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("mongostore: decode device: %w", err)
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

func (s *Store) GetDefaultIdentity(ctx context.Context) (*domain.Identity, error) {
	var id domain.Identity
	if err := s.identities.FindOne(ctx, bson.M{"is_default": true}).Decode(&id); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("mongostore: get default identity: %w", err)
	}
	return &id, nil
}

func (s *Store) UpsertGraphNode(ctx context.Context, id string, now time.Time) error {
	_, err := s.graphNodes.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":         bson.M{"last_seen": now},
			"$setOnInsert": bson.M{"first_seen": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: upsert graph node: %w", err)
	}
	return nil
}

func (s *Store) UpsertGraphLink(ctx context.Context, link *domain.GraphLink) error {
	_, err := s.graphLinks.UpdateOne(ctx,
		bson.M{"_id": link.Key},
		bson.M{
			"$set": bson.M{
				"a":         link.A,
				"b":         link.B,
				"if_a":      link.IfA,
				"if_b":      link.IfB,
				"last_seen": link.LastSeen,
			},
			"$setOnInsert": bson.M{"first_seen": link.FirstSeen},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: upsert graph link: %w", err)
	}
	return nil
}

func (s *Store) ListGraphLinks(ctx context.Context) ([]*domain.GraphLink, error) {
	cur, err := s.graphLinks.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongostore: list graph links: %w", err)
	}
	defer cur.Close(ctx)

	var out []*domain.GraphLink
	for cur.Next(ctx) {
		var l domain.GraphLink
		if err := cur.Decode(&l); err != nil {
			return nil, fmt.Errorf("mongostore: decode graph link: %w", err)
		}
		out = append(out, &l)
	}
	return out, cur.Err()
}

func (s *Store) InsertSnapshot(ctx context.Context, snap *domain.TopologySnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	_, err := s.topology.InsertOne(ctx, snap)
	if err != nil {
		return fmt.Errorf("mongostore: insert snapshot: %w", err)
	}
	return nil
}

func (s *Store) GetReachabilityCache(ctx context.Context) (*domain.ReachabilityCache, error) {
	var c domain.ReachabilityCache
	err := s.reachCache.FindOne(ctx, bson.M{"_id": domain.ReachabilityCacheID}).Decode(&c)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("mongostore: get reachability cache: %w", err)
	}
	return &c, nil
}

func (s *Store) PutReachabilityCache(ctx context.Context, cache *domain.ReachabilityCache) error {
	cache.ID = domain.ReachabilityCacheID
	_, err := s.reachCache.UpdateOne(ctx,
		bson.M{"_id": domain.ReachabilityCacheID},
		bson.M{"$set": cache},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: put reachability cache: %w", err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
