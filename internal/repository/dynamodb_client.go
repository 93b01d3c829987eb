// Package repository keeps the per-session usage ledger in DynamoDB.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	skPrefixUsage  = "USAGE#"
	skPrefixReject = "REJECT#"
	skMeta         = "META#"
	ttlDuration    = 30 * 24 * time.Hour // 30-day TTL
	previewRunes   = 200
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client wraps a DynamoDB table holding usage and rejection records.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// sessionPK returns the DynamoDB partition key for a session.
func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func eventSK(prefix string, ts time.Time) string {
	return prefix + ts.UTC().Format(time.RFC3339Nano)
}

func (c *Client) ttlValue() int64 {
	return c.now().Add(ttlDuration).Unix()
}

// RecordUsage writes one usage event and bumps the session totals in a
// single transaction.
func (c *Client) RecordUsage(ctx context.Context, sessionID, operation string, tokens int) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("repository: RecordUsage: session id is required")
	}
	if tokens < 0 {
		tokens = 0
	}
	now := c.now().UTC()
	pk := sessionPK(sessionID)
	ttl := numAttr(c.ttlValue())

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName: aws.String(c.tableName),
					Item: map[string]types.AttributeValue{
						"PK":        &types.AttributeValueMemberS{Value: pk},
						"SK":        &types.AttributeValueMemberS{Value: eventSK(skPrefixUsage, now)},
						"sessionId": &types.AttributeValueMemberS{Value: sessionID},
						"operation": &types.AttributeValueMemberS{Value: operation},
						"tokens":    numAttr(int64(tokens)),
						"createdAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
						"ttl":       ttl,
					},
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
			{
				Update: &types.Update{
					TableName: aws.String(c.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: pk},
						"SK": &types.AttributeValueMemberS{Value: skMeta},
					},
					UpdateExpression: aws.String("ADD totalTokens :tokens, calls :one SET lastActivity = :now, #ttl = :ttl"),
					ExpressionAttributeNames: map[string]string{
						"#ttl": "ttl",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":tokens": numAttr(int64(tokens)),
						":one":    numAttr(1),
						":now":    &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
						":ttl":    ttl,
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: RecordUsage: %w", err)
	}
	return nil
}

// RecordRejection stores a truncated copy of input refused by the injection
// screen.
func (c *Client) RecordRejection(ctx context.Context, sessionID, field, content string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("repository: RecordRejection: session id is required")
	}
	now := c.now().UTC()

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			"SK":        &types.AttributeValueMemberS{Value: eventSK(skPrefixReject, now)},
			"sessionId": &types.AttributeValueMemberS{Value: sessionID},
			"field":     &types.AttributeValueMemberS{Value: field},
			"content":   &types.AttributeValueMemberS{Value: preview(content, previewRunes)},
			"createdAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			"ttl":       numAttr(c.ttlValue()),
		},
	})
	if err != nil {
		return fmt.Errorf("repository: RecordRejection: %w", err)
	}
	return nil
}

func numAttr(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", n)}
}

// preview cuts s to at most n runes.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
