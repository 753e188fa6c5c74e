// Package ddb provides the DynamoDB repository for contract aggregates.
// Each contract is one item; writes are version-checked so stale
// read-modify-write cycles are rejected instead of silently lost.
package ddb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/gatherly/contract-esign-portal/internal/models"
	"github.com/gatherly/contract-esign-portal/internal/workflow"
)

// DynamoAPI is the subset of the DynamoDB client the repo uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Repo wraps a DynamoDB client and table name for contract operations.
type Repo struct {
	DB    DynamoAPI
	Table string
}

// MakeKeys constructs the partition key (PK) and sort key (SK) for a
// contract item.
func MakeKeys(eventID, contractID string) (pk, sk string) {
	return fmt.Sprintf("EVENT#%s", eventID), fmt.Sprintf("CONTRACT#%s", contractID)
}

// CreateContract inserts a new contract at version 1, ensuring no duplicate
// exists.
func (r *Repo) CreateContract(ctx context.Context, c *models.Contract) error {
	c.PK, c.SK = MakeKeys(c.EventID, c.ContractID)
	c.Version = 1
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if isConditionFailed(err) {
		return workflow.ErrConflict
	}
	return err
}

// GetContract reads one contract with strong consistency.
func (r *Repo) GetContract(ctx context.Context, eventID, contractID string) (*models.Contract, error) {
	pk, sk := MakeKeys(eventID, contractID)
	out, err := r.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.Table,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, workflow.ErrNotFound
	}
	var c models.Contract
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveContract writes the whole aggregate back, conditioned on the version
// the caller read. A stale write fails with ErrConflict so the caller can
// reload and retry; the increment makes version strictly monotonic.
func (r *Repo) SaveContract(ctx context.Context, c *models.Contract) error {
	readVersion := c.Version
	c.Version = readVersion + 1
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		c.Version = readVersion
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK) AND version = :prev"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prev": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", readVersion)},
		},
	})
	if err != nil {
		c.Version = readVersion
		if isConditionFailed(err) {
			return workflow.ErrConflict
		}
		return err
	}
	return nil
}

// ListByEvent returns contracts under one event, optionally filtered to a
// vendor. Powers the vendor dashboard.
func (r *Repo) ListByEvent(ctx context.Context, eventID, vendorID string, limit int32) ([]models.Contract, error) {
	pk, _ := MakeKeys(eventID, "")
	in := &dynamodb.QueryInput{
		TableName:              &r.Table,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
			":sk": &types.AttributeValueMemberS{Value: "CONTRACT#"},
		},
		Limit: aws.Int32(limit),
	}
	if vendorID != "" {
		in.FilterExpression = aws.String("vendor_id = :vid")
		in.ExpressionAttributeValues[":vid"] = &types.AttributeValueMemberS{Value: vendorID}
	}
	out, err := r.DB.Query(ctx, in)
	if err != nil {
		return nil, err
	}
	contracts := make([]models.Contract, 0, len(out.Items))
	for _, item := range out.Items {
		var c models.Contract
		if err := attributevalue.UnmarshalMap(item, &c); err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
