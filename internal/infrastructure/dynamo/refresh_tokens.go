package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/identity-api/internal/domain"
)

// RefreshTokenRepo is the revocation set for issued refresh tokens,
// keyed by the token's jti.
type RefreshTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRefreshTokenRepo(client *dynamodb.Client, tableName string) *RefreshTokenRepo {
	return &RefreshTokenRepo{client: client, tableName: tableName}
}

func (r *RefreshTokenRepo) Put(ctx context.Context, rec *domain.RefreshTokenRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal refresh token record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *RefreshTokenRepo) Get(ctx context.Context, tokenID string) (*domain.RefreshTokenRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token_id", tokenID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("refresh token record not found: %w", domain.ErrNotFound)
	}
	var rec domain.RefreshTokenRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func revokeInput(table, tokenID string) *dynamodb.UpdateItemInput {
	return &dynamodb.UpdateItemInput{
		TableName:                aws.String(table),
		Key:                      strKey("token_id", tokenID),
		UpdateExpression:         aws.String("SET #r = :t"),
		ConditionExpression:      aws.String("attribute_exists(token_id) AND #r = :f"),
		ExpressionAttributeNames: map[string]string{"#r": fieldRevoked},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
	}
}

// Revoke atomically flips the record to revoked, conditional on it not being
// revoked already. Under concurrent rotation with the same token exactly one
// caller passes; the loser gets ErrRevoked.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, tokenID string) error {
	_, err := r.client.UpdateItem(ctx, revokeInput(r.tableName, tokenID))
	var ccfe *types.ConditionalCheckFailedException
	if errors.As(err, &ccfe) {
		return fmt.Errorf("refresh token already revoked: %w", domain.ErrRevoked)
	}
	return err
}

// RevokeAllForUser marks every live refresh record for the user revoked
// (bulk revocation after a password reset). Best-effort per item; the first
// failure is returned after attempting the rest.
func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return err
	}
	var firstErr error
	for _, item := range out.Items {
		idAttr, ok := item["token_id"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if err := r.Revoke(ctx, idAttr.Value); err != nil && !errors.Is(err, domain.ErrRevoked) {
			slog.Warn("failed to revoke refresh token during bulk revocation", "token_id", idAttr.Value, "user_id", userID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
