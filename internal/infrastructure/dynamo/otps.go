package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/identity-api/internal/domain"
)

// OtpRepo manages single-use verification codes.
// PK: user_id, SK: purpose — a Put for the same (user, purpose) replaces the
// prior item in one write, which is what invalidates an outstanding code.
type OtpRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOtpRepo(client *dynamodb.Client, tableName string) *OtpRepo {
	return &OtpRepo{client: client, tableName: tableName}
}

func (r *OtpRepo) Put(ctx context.Context, c *domain.OtpCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal otp code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *OtpRepo) Get(ctx context.Context, userID, purpose string) (*domain.OtpCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "purpose", purpose),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp code not found: %w", domain.ErrNotFound)
	}
	var c domain.OtpCode
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// consumeInput aliases every data attribute through ExpressionAttributeNames;
// CONSUMED is a DynamoDB reserved word and may not appear bare in expressions.
func consumeInput(table, userID, purpose, code string) *dynamodb.UpdateItemInput {
	return &dynamodb.UpdateItemInput{
		TableName:           aws.String(table),
		Key:                 compositeKey("user_id", userID, "purpose", purpose),
		UpdateExpression:    aws.String("SET #c = :t"),
		ConditionExpression: aws.String("attribute_exists(user_id) AND #c = :f AND #v = :code"),
		ExpressionAttributeNames: map[string]string{
			"#c": fieldConsumed,
			"#v": fieldCode,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":    &types.AttributeValueMemberBOOL{Value: true},
			":f":    &types.AttributeValueMemberBOOL{Value: false},
			":code": &types.AttributeValueMemberS{Value: code},
		},
	}
}

// Consume atomically marks the code consumed, conditional on it still being
// unconsumed and holding the expected value. Under concurrent redemption
// exactly one caller passes the condition; the rest get ErrNotFound.
func (r *OtpRepo) Consume(ctx context.Context, userID, purpose, code string) error {
	_, err := r.client.UpdateItem(ctx, consumeInput(r.tableName, userID, purpose, code))
	var ccfe *types.ConditionalCheckFailedException
	if errors.As(err, &ccfe) {
		return fmt.Errorf("otp code already consumed: %w", domain.ErrNotFound)
	}
	return err
}

// MarkConsumed unconditionally retires a code (used when an expired record is
// observed, so it cannot be retried).
func (r *OtpRepo) MarkConsumed(ctx context.Context, userID, purpose string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldConsumed: true})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey("user_id", userID, "purpose", purpose),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func incrementAttemptsInput(table, userID, purpose string) *dynamodb.UpdateItemInput {
	return &dynamodb.UpdateItemInput{
		TableName:           aws.String(table),
		Key:                 compositeKey("user_id", userID, "purpose", purpose),
		UpdateExpression:    aws.String("SET #a = #a + :one"),
		ConditionExpression: aws.String("attribute_exists(user_id) AND #c = :f"),
		ExpressionAttributeNames: map[string]string{
			"#a": fieldAttempts,
			"#c": fieldConsumed,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
}

// IncrementAttempts bumps the failed-attempt counter on a still-active code
// and returns the new count.
func (r *OtpRepo) IncrementAttempts(ctx context.Context, userID, purpose string) (int, error) {
	out, err := r.client.UpdateItem(ctx, incrementAttemptsInput(r.tableName, userID, purpose))
	var ccfe *types.ConditionalCheckFailedException
	if errors.As(err, &ccfe) {
		return 0, fmt.Errorf("otp code no longer active: %w", domain.ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	n, ok := out.Attributes["attempts"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attempts attribute missing from update response")
	}
	attempts, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("parse attempts: %w", err)
	}
	return attempts, nil
}
