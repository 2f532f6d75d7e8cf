package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"clamp-agent/internal/domain"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	queryPages   []*dynamodb.QueryOutput
	queryErr     error
	updateOut    *dynamodb.UpdateItemOutput
	updateErr    error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
	queryInputs  []*dynamodb.QueryInput
	lastUpdateIn *dynamodb.UpdateItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	// copy so pagination state is observable per call
	cp := *in
	f.queryInputs = append(f.queryInputs, &cp)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.queryPages) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	page := f.queryPages[0]
	f.queryPages = f.queryPages[1:]
	return page, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdateIn = in
	return f.updateOut, f.updateErr
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	return c
}

func sampleJob() domain.Job {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return domain.Job{
		ID:         "j1",
		Number:     "JOB-0001",
		Title:      "Gutter clean",
		ClientID:   "c1",
		ClientName: "Ann Smith",
		Status:     domain.JobScheduled,
		Start:      &start,
		Assignees:  []string{"m1"},
		CreatedAt:  start.Add(-time.Hour),
		UpdatedAt:  start.Add(-time.Hour),
	}
}

// clientItem builds a stored client record. Clients are written outside this service.
func clientItem(tenantID string, c domain.Client) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        s(tenantPK(tenantID)),
		"SK":        s(skClient + c.ID),
		"id":        s(c.ID),
		"name":      s(c.Name),
		"email":     s(c.Email),
		"phone":     s(c.Phone),
		"address":   s(c.Address),
		"createdAt": s(formatTime(c.CreatedAt)),
	}
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil, "test-table")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestNew_EmptyTableName(t *testing.T) {
	_, err := New(&fakeDynamo{}, " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")
}

func TestTenantPK(t *testing.T) {
	require.Equal(t, "TENANT#acme", tenantPK("acme"))
}

func TestListClients_ScopedToTenantAndPaginated(t *testing.T) {
	db := &fakeDynamo{queryPages: []*dynamodb.QueryOutput{
		{
			Items:            []map[string]types.AttributeValue{clientItem("t1", domain.Client{ID: "c2", Name: "zed"})},
			LastEvaluatedKey: map[string]types.AttributeValue{"PK": s("TENANT#t1"), "SK": s("CLIENT#c2")},
		},
		{Items: []map[string]types.AttributeValue{clientItem("t1", domain.Client{ID: "c1", Name: "Ann"})}},
	}}
	c := mustNewClient(t, db)

	clients, err := c.ListClients(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, clients, 2)
	require.Equal(t, "Ann", clients[0].Name)

	require.Len(t, db.queryInputs, 2)
	require.Equal(t, "PK = :pk AND begins_with(SK, :prefix)", *db.queryInputs[0].KeyConditionExpression)
	require.Equal(t, "TENANT#t1", db.queryInputs[0].ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "CLIENT#", db.queryInputs[0].ExpressionAttributeValues[":prefix"].(*types.AttributeValueMemberS).Value)
	require.Nil(t, db.queryInputs[0].ExclusiveStartKey)
	require.NotNil(t, db.queryInputs[1].ExclusiveStartKey)
}

func TestListClients_RequiresTenant(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	_, err := c.ListClients(context.Background(), "")
	require.ErrorContains(t, err, "tenant id is required")
}

func TestListJobs_QueryError(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("ResourceNotFoundException")}
	c := mustNewClient(t, db)
	_, err := c.ListJobs(context.Background(), "t1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ListJobs")
}

func TestListJobs_MalformedItem(t *testing.T) {
	db := &fakeDynamo{queryPages: []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{
		{"PK": s("TENANT#t1"), "SK": s("JOB#x"), "id": s("x")},
	}}}}
	c := mustNewClient(t, db)
	_, err := c.ListJobs(context.Background(), "t1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "title")
}

func TestJobItem_RoundTripsSchedule(t *testing.T) {
	job := sampleJob()
	got, err := itemToJob(jobItem("t1", job))
	require.NoError(t, err)
	require.Equal(t, job.Start.Unix(), got.Start.Unix())
	require.Nil(t, got.End)
	require.Equal(t, []string{"m1"}, got.Assignees)

	job.Start = nil
	got, err = itemToJob(jobItem("t1", job))
	require.NoError(t, err)
	require.Nil(t, got.Start)
}

func TestGetJob_NotFound(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	c := mustNewClient(t, db)
	_, err := c.GetJob(context.Background(), "t1", "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Equal(t, "TENANT#t1", db.lastGetInput.Key["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "JOB#missing", db.lastGetInput.Key["SK"].(*types.AttributeValueMemberS).Value)
	require.True(t, *db.lastGetInput.ConsistentRead)
}

func TestPutJob_ConditionalCreate(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	require.NoError(t, c.PutJob(context.Background(), "t1", sampleJob()))
	require.Equal(t, notExistsCondition, *db.lastPutInput.ConditionExpression)
	require.Equal(t, "JOB#j1", db.lastPutInput.Item["SK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "JOB-0001", db.lastPutInput.Item["jobNumber"].(*types.AttributeValueMemberS).Value)
}

func TestPutJob_DynamoError(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceededException")}
	c := mustNewClient(t, db)
	err := c.PutJob(context.Background(), "t1", sampleJob())
	require.Error(t, err)
	require.Contains(t, err.Error(), "PutJob")
}

func TestUpdateJob_BuildsExpressionFromPatch(t *testing.T) {
	updated := sampleJob()
	updated.Status = domain.JobCompleted
	db := &fakeDynamo{updateOut: &dynamodb.UpdateItemOutput{Attributes: jobItem("t1", updated)}}
	c := mustNewClient(t, db)

	status := domain.JobCompleted
	got, err := c.UpdateJob(context.Background(), "t1", "j1", domain.JobPatch{
		Status:    &status,
		ClearEnd:  true,
		UpdatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.Equal(t, domain.JobCompleted, got.Status)

	in := db.lastUpdateIn
	require.Equal(t, "SET #status = :status, #updatedAt = :updatedAt REMOVE #end", *in.UpdateExpression)
	require.Equal(t, existsCondition, *in.ConditionExpression)
	require.Equal(t, types.ReturnValueAllNew, in.ReturnValues)
	require.NotContains(t, in.ExpressionAttributeNames, "#title")
}

func TestUpdateJob_MissingJob(t *testing.T) {
	db := &fakeDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	c := mustNewClient(t, db)
	_, err := c.UpdateJob(context.Background(), "t1", "nope", domain.JobPatch{UpdatedAt: time.Now()})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteItem_RoundTripsLineItems(t *testing.T) {
	q := domain.Quote{
		ID:     "q1",
		Number: "QUO-0003",
		Status: domain.StatusDraft,
		LineItems: []domain.LineItem{
			{Description: "Labour", Quantity: 2, UnitPrice: 45.5},
		},
		Total: 91,
	}
	got, err := itemToQuote(quoteItem("t1", q))
	require.NoError(t, err)
	require.Equal(t, q.LineItems, got.LineItems)
	require.Equal(t, 91.0, got.Total)
}

func TestInvoiceItem_BadTotal(t *testing.T) {
	item := invoiceItem("t1", domain.Invoice{ID: "i1"})
	item["total"] = s("lots")
	_, err := itemToInvoice(item)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a number")
}

func TestListTeamMembers_HappyPath(t *testing.T) {
	db := &fakeDynamo{queryPages: []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{
		{"PK": s("TENANT#t1"), "SK": s("MEMBER#m2"), "id": s("m2"), "name": s("Zoe")},
		{"PK": s("TENANT#t1"), "SK": s("MEMBER#m1"), "id": s("m1"), "name": s("Bo"), "role": s("tech")},
	}}}}
	c := mustNewClient(t, db)
	members, err := c.ListTeamMembers(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, []domain.TeamMember{{ID: "m1", Name: "Bo", Role: "tech"}, {ID: "m2", Name: "Zoe"}}, members)
}
