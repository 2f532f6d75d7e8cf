package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"clamp-agent/internal/domain"
)

const (
	skClient  = "CLIENT#"
	skJob     = "JOB#"
	skQuote   = "QUOTE#"
	skInvoice = "INVOICE#"
	skMember  = "MEMBER#"

	notExistsCondition = "attribute_not_exists(PK) AND attribute_not_exists(SK)"
	existsCondition    = "attribute_exists(PK) AND attribute_exists(SK)"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Client wraps the single DynamoDB table holding tenant business data.
// Every key it builds starts with the tenant partition, so no call can reach
// another tenant's items.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// tenantPK returns the partition key shared by all of a tenant's items.
func tenantPK(tenantID string) string {
	return "TENANT#" + tenantID
}

func (c *Client) key(tenantID, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": s(tenantPK(tenantID)),
		"SK": s(sk),
	}
}

// ListClients returns every client of the tenant ordered by name.
func (c *Client) ListClients(ctx context.Context, tenantID string) ([]domain.Client, error) {
	items, err := c.queryPrefix(ctx, tenantID, skClient)
	if err != nil {
		return nil, fmt.Errorf("repository: ListClients: %w", err)
	}
	out := make([]domain.Client, 0, len(items))
	for _, item := range items {
		cl, err := itemToClient(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListClients unmarshal: %w", err)
		}
		out = append(out, cl)
	}
	sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

// GetClient fetches one client, returning domain.ErrNotFound when absent.
func (c *Client) GetClient(ctx context.Context, tenantID, id string) (domain.Client, error) {
	item, err := c.getItem(ctx, tenantID, skClient+id)
	if err != nil {
		return domain.Client{}, fmt.Errorf("repository: GetClient: %w", err)
	}
	return itemToClient(item)
}

// ListJobs returns every job of the tenant, newest first.
func (c *Client) ListJobs(ctx context.Context, tenantID string) ([]domain.Job, error) {
	items, err := c.queryPrefix(ctx, tenantID, skJob)
	if err != nil {
		return nil, fmt.Errorf("repository: ListJobs: %w", err)
	}
	out := make([]domain.Job, 0, len(items))
	for _, item := range items {
		j, err := itemToJob(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListJobs unmarshal: %w", err)
		}
		out = append(out, j)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (c *Client) GetJob(ctx context.Context, tenantID, id string) (domain.Job, error) {
	item, err := c.getItem(ctx, tenantID, skJob+id)
	if err != nil {
		return domain.Job{}, fmt.Errorf("repository: GetJob: %w", err)
	}
	return itemToJob(item)
}

// PutJob persists a new job. It never overwrites an existing one.
func (c *Client) PutJob(ctx context.Context, tenantID string, job domain.Job) error {
	if err := c.putNew(ctx, jobItem(tenantID, job)); err != nil {
		return fmt.Errorf("repository: PutJob: %w", err)
	}
	return nil
}

// UpdateJob applies patch to an existing job and returns the stored result.
func (c *Client) UpdateJob(ctx context.Context, tenantID, id string, patch domain.JobPatch) (domain.Job, error) {
	var sets, removes []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}

	set := func(attr string, v types.AttributeValue) {
		names["#"+attr] = attr
		values[":"+attr] = v
		sets = append(sets, fmt.Sprintf("#%s = :%s", attr, attr))
	}
	if patch.Status != nil {
		set("status", s(*patch.Status))
	}
	if patch.Title != nil {
		set("title", s(*patch.Title))
	}
	if patch.Notes != nil {
		set("notes", s(*patch.Notes))
	}
	if patch.Assignees != nil {
		set("assignees", strList(*patch.Assignees))
	}
	switch {
	case patch.ClearStart:
		names["#start"] = "start"
		removes = append(removes, "#start")
	case patch.Start != nil:
		set("start", s(formatTime(*patch.Start)))
	}
	switch {
	case patch.ClearEnd:
		names["#end"] = "end"
		removes = append(removes, "#end")
	case patch.End != nil:
		set("end", s(formatTime(*patch.End)))
	}
	set("updatedAt", s(formatTime(patch.UpdatedAt)))

	expr := "SET " + strings.Join(sets, ", ")
	if len(removes) > 0 {
		expr += " REMOVE " + strings.Join(removes, ", ")
	}

	out, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.tableName),
		Key:                       c.key(tenantID, skJob+id),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String(existsCondition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return domain.Job{}, domain.ErrNotFound
		}
		return domain.Job{}, fmt.Errorf("repository: UpdateJob: %w", err)
	}
	if out == nil || len(out.Attributes) == 0 {
		return domain.Job{}, errors.New("repository: UpdateJob: no attributes returned")
	}
	return itemToJob(out.Attributes)
}

func (c *Client) ListQuotes(ctx context.Context, tenantID string) ([]domain.Quote, error) {
	items, err := c.queryPrefix(ctx, tenantID, skQuote)
	if err != nil {
		return nil, fmt.Errorf("repository: ListQuotes: %w", err)
	}
	out := make([]domain.Quote, 0, len(items))
	for _, item := range items {
		q, err := itemToQuote(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListQuotes unmarshal: %w", err)
		}
		out = append(out, q)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (c *Client) GetQuote(ctx context.Context, tenantID, id string) (domain.Quote, error) {
	item, err := c.getItem(ctx, tenantID, skQuote+id)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("repository: GetQuote: %w", err)
	}
	return itemToQuote(item)
}

func (c *Client) PutQuote(ctx context.Context, tenantID string, q domain.Quote) error {
	if err := c.putNew(ctx, quoteItem(tenantID, q)); err != nil {
		return fmt.Errorf("repository: PutQuote: %w", err)
	}
	return nil
}

func (c *Client) ListInvoices(ctx context.Context, tenantID string) ([]domain.Invoice, error) {
	items, err := c.queryPrefix(ctx, tenantID, skInvoice)
	if err != nil {
		return nil, fmt.Errorf("repository: ListInvoices: %w", err)
	}
	out := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		inv, err := itemToInvoice(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListInvoices unmarshal: %w", err)
		}
		out = append(out, inv)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (c *Client) GetInvoice(ctx context.Context, tenantID, id string) (domain.Invoice, error) {
	item, err := c.getItem(ctx, tenantID, skInvoice+id)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("repository: GetInvoice: %w", err)
	}
	return itemToInvoice(item)
}

func (c *Client) PutInvoice(ctx context.Context, tenantID string, inv domain.Invoice) error {
	if err := c.putNew(ctx, invoiceItem(tenantID, inv)); err != nil {
		return fmt.Errorf("repository: PutInvoice: %w", err)
	}
	return nil
}

// ListTeamMembers returns the tenant's staff ordered by name.
func (c *Client) ListTeamMembers(ctx context.Context, tenantID string) ([]domain.TeamMember, error) {
	items, err := c.queryPrefix(ctx, tenantID, skMember)
	if err != nil {
		return nil, fmt.Errorf("repository: ListTeamMembers: %w", err)
	}
	out := make([]domain.TeamMember, 0, len(items))
	for _, item := range items {
		m, err := itemToMember(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListTeamMembers unmarshal: %w", err)
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// queryPrefix reads every item in the tenant partition whose sort key starts
// with prefix, following pagination.
func (c *Client) queryPrefix(ctx context.Context, tenantID, prefix string) ([]map[string]types.AttributeValue, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.New("tenant id is required")
	}
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     s(tenantPK(tenantID)),
			":prefix": s(prefix),
		},
	}
	var items []map[string]types.AttributeValue
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return nil, err
		}
		if out == nil {
			break
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return items, nil
}

func (c *Client) getItem(ctx context.Context, tenantID, sk string) (map[string]types.AttributeValue, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.New("tenant id is required")
	}
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            c.key(tenantID, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.Item) == 0 {
		return nil, domain.ErrNotFound
	}
	return out.Item, nil
}

func (c *Client) putNew(ctx context.Context, item map[string]types.AttributeValue) error {
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String(notExistsCondition),
	})
	return err
}
