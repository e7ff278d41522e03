// Package dynamo stores the inventory snapshot as a single versioned item in
// a DynamoDB table. Writes are conditional on the version read so that two
// processes sharing a table cannot silently overwrite each other.
package dynamo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vsinha/relief/pkg/domain/entities"
	"github.com/vsinha/relief/pkg/domain/repositories"
)

// DB is our local alias for the dynamo interface
type DB dynamodbiface.DynamoDBAPI

// DefaultKey is the partition key of the snapshot item
const DefaultKey = "inventory"

// ErrVersionConflict is returned when another writer persisted first
var ErrVersionConflict = errors.New("snapshot version conflict")

type key struct {
	PK string `dynamodbav:"pk"`
}

type item struct {
	PK       string `dynamodbav:"pk"`
	Version  int64  `dynamodbav:"ver"`
	Document string `dynamodbav:"doc"`
}

// Store persists snapshots in a DynamoDB table
type Store struct {
	db     DB
	table  string
	key    string
	logger *zap.Logger
}

// NewStore creates a store for the given table. An empty key selects DefaultKey.
func NewStore(db DB, table, pk string, logger *zap.Logger) *Store {
	if pk == "" {
		pk = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, table: table, key: pk, logger: logger}
}

// NewClient sets up a DynamoDB client. A non-empty endpoint points the client
// at a local emulator.
func NewClient(region, endpoint string) (DB, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup aws session")
	}
	return dynamodb.New(sess), nil
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*Store)(nil)

// Load reads the snapshot item with a consistent read
func (s *Store) Load(ctx context.Context) (*entities.Snapshot, error) {
	ipk, err := dynamodbattribute.MarshalMap(key{PK: s.key})
	if err != nil {
		return entities.NewSnapshot(), errors.Wrap(err, "failed to marshal primary key")
	}

	out, err := s.db.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            ipk,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		s.logger.Error("failed to get snapshot item", zap.String("table", s.table), zap.Error(err))
		return entities.NewSnapshot(), errors.Wrapf(entities.ErrDataUnavailable, "get item: %v", err)
	}
	if out.Item == nil {
		s.logger.Warn("snapshot item missing", zap.String("table", s.table), zap.String("pk", s.key))
		return entities.NewSnapshot(), errors.Wrapf(entities.ErrDataUnavailable, "no item %q in %s", s.key, s.table)
	}

	var it item
	if err := dynamodbattribute.UnmarshalMap(out.Item, &it); err != nil {
		return entities.NewSnapshot(), errors.Wrapf(entities.ErrDataUnavailable, "unmarshal item: %v", err)
	}

	var snapshot entities.Snapshot
	if err := json.Unmarshal([]byte(it.Document), &snapshot); err != nil {
		s.logger.Error("snapshot document corrupt", zap.String("table", s.table), zap.Error(err))
		return entities.NewSnapshot(), errors.Wrapf(entities.ErrDataUnavailable, "decode document: %v", err)
	}
	snapshot.Normalize()
	snapshot.Version = it.Version

	return &snapshot, nil
}

// Persist writes the snapshot if the stored version still matches the one
// it was loaded at. On success the snapshot carries the new version.
func (s *Store) Persist(ctx context.Context, snapshot *entities.Snapshot) error {
	doc, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrapf(entities.ErrPersistFailure, "encode snapshot: %v", err)
	}

	next := snapshot.Version + 1
	it, err := dynamodbattribute.MarshalMap(item{PK: s.key, Version: next, Document: string(doc)})
	if err != nil {
		return errors.Wrapf(entities.ErrPersistFailure, "marshal item: %v", err)
	}

	expected, err := dynamodbattribute.Marshal(snapshot.Version)
	if err != nil {
		return errors.Wrapf(entities.ErrPersistFailure, "marshal version: %v", err)
	}

	inp := &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                it,
		ConditionExpression: aws.String("attribute_not_exists(#pk) OR #ver = :v"),
		ExpressionAttributeNames: map[string]*string{
			"#pk":  aws.String("pk"),
			"#ver": aws.String("ver"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":v": expected,
		},
	}

	if _, err = s.db.PutItemWithContext(ctx, inp); err != nil {
		aerr, ok := err.(awserr.Error)
		if ok && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
			s.logger.Warn("snapshot changed by another writer",
				zap.String("table", s.table),
				zap.Int64("version", snapshot.Version),
			)
			return fmt.Errorf("%w at version %d: %w", ErrVersionConflict, snapshot.Version, entities.ErrPersistFailure)
		}
		s.logger.Error("failed to put snapshot item", zap.String("table", s.table), zap.Error(err))
		return errors.Wrapf(entities.ErrPersistFailure, "put item: %v", err)
	}

	snapshot.Version = next
	return nil
}
