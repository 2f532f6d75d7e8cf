// Package sequence issues per-tenant document numbers such as JOB-0042.
//
// Counters live on the tenant's PROFILE item. Each issue is one atomic
// UpdateItem that adds 1 to the counter and returns the new item, so racing
// callers are serialized by DynamoDB and never share a value. The first issue
// creates the counter and the padding in that same write.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	DefaultPadding = 4
	maxPadding     = 12

	paddingAttr = "numberPadding"
	profileSK   = "PROFILE"
)

// ErrCorruptCounter is returned when a stored counter holds a value below 1.
var ErrCorruptCounter = errors.New("sequence: stored counter is below 1")

// Counter names one document class's counter and prefix attributes.
type Counter struct {
	Attr       string
	PrefixAttr string
}

var (
	JobNumber     = Counter{Attr: "nextJobNumber", PrefixAttr: "jobPrefix"}
	QuoteNumber   = Counter{Attr: "nextQuoteNumber", PrefixAttr: "quotePrefix"}
	InvoiceNumber = Counter{Attr: "nextInvoiceNumber", PrefixAttr: "invoicePrefix"}
)

// dynamodbAPI is the minimal DynamoDB interface required by Generator.
type dynamodbAPI interface {
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Generator hands out formatted, strictly increasing numbers.
type Generator struct {
	api            dynamodbAPI
	tableName      string
	defaultPadding int
}

type Option func(*Generator)

// WithDefaultPadding sets the width used when a tenant has none configured.
func WithDefaultPadding(n int) Option {
	return func(g *Generator) {
		if n > 0 && n <= maxPadding {
			g.defaultPadding = n
		}
	}
}

// New creates a Generator over the given table.
func New(api dynamodbAPI, tableName string, opts ...Option) (*Generator, error) {
	if api == nil {
		return nil, errors.New("sequence: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("sequence: table name must not be empty")
	}
	g := &Generator{
		api:            api,
		tableName:      tableName,
		defaultPadding: DefaultPadding,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Next claims the tenant's next value for counter and formats it as
// <prefix>-<zero padded n>. A prefix stored on the tenant profile wins over
// the one passed in.
func (g *Generator) Next(ctx context.Context, tenantID string, counter Counter, prefix string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", errors.New("sequence: tenant id is required")
	}
	if counter.Attr == "" {
		return "", errors.New("sequence: counter attribute is required")
	}

	// The counter holds the next value to hand out, so the claimed value is
	// the post-increment value minus one.
	out, err := g.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(g.tableName),
		Key:                 profileKey(tenantID),
		UpdateExpression:    aws.String("SET #counter = if_not_exists(#counter, :one) + :one, #padding = if_not_exists(#padding, :pad)"),
		ConditionExpression: aws.String("attribute_not_exists(#counter) OR #counter >= :one"),
		ExpressionAttributeNames: map[string]string{
			"#counter": counter.Attr,
			"#padding": paddingAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": numberValue(1),
			":pad": numberValue(g.defaultPadding),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return "", fmt.Errorf("sequence: Next %s for tenant %s: %w", counter.Attr, tenantID, ErrCorruptCounter)
		}
		return "", fmt.Errorf("sequence: Next %s: %w", counter.Attr, err)
	}
	if out == nil {
		return "", fmt.Errorf("sequence: Next %s: empty response", counter.Attr)
	}

	next, ok, err := numberAttr(out.Attributes, counter.Attr)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("sequence: Next %s: counter missing from response", counter.Attr)
	}

	padding := g.defaultPadding
	if n, ok, err := numberAttr(out.Attributes, paddingAttr); err != nil {
		return "", err
	} else if ok && n > 0 && n <= maxPadding {
		padding = n
	}
	if v, ok := out.Attributes[counter.PrefixAttr].(*types.AttributeValueMemberS); ok && strings.TrimSpace(v.Value) != "" {
		prefix = v.Value
	}
	return Format(prefix, next-1, padding), nil
}

// Format renders n with the given prefix and zero padding.
func Format(prefix string, n, padding int) string {
	if padding < 1 {
		padding = 1
	}
	num := fmt.Sprintf("%0*d", padding, n)
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return num
	}
	return prefix + "-" + num
}

func profileKey(tenantID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "TENANT#" + tenantID},
		"SK": &types.AttributeValueMemberS{Value: profileSK},
	}
}

func numberValue(n int) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
}

func numberAttr(item map[string]types.AttributeValue, key string) (int, bool, error) {
	v, ok := item[key]
	if !ok {
		return 0, false, nil
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, false, fmt.Errorf("sequence: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, false, fmt.Errorf("sequence: parse attribute %q: %w", key, err)
	}
	return parsed, true, nil
}
