package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

const contestIndex = "tid-rid-index"

// batchGetMax is the dynamodb BatchGetItem key limit.
const batchGetMax = 100

type DdbStore struct {
	ddbClient *dynamodb.Client
	tableName string
}

func NewDdbStore(ddbClient *dynamodb.Client, tableName string) *DdbStore {
	return &DdbStore{
		ddbClient: ddbClient,
		tableName: tableName,
	}
}

func (s *DdbStore) key(id uuid.UUID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"rid": &types.AttributeValueMemberS{Value: id.String()},
	}
}

func (s *DdbStore) Insert(ctx context.Context, rec Record) error {
	item, err := attributevalue.MarshalMap(toRow(rec))
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	cond := expression.AttributeNotExists(expression.Name("rid"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build insert condition: %w", err)
	}
	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.tableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return ErrRecordExists()
		}
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

func (s *DdbStore) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	out, err := s.ddbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Record{}, fmt.Errorf("failed to get record: %w", err)
	}
	if out.Item == nil {
		return Record{}, ErrRecordNotFound()
	}
	return unmarshalRecord(out.Item)
}

func (s *DdbStore) GetMulti(ctx context.Context, ids []uuid.UUID, includeHidden bool) ([]Record, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, s.key(id))
	}

	byID := make(map[uuid.UUID]Record, len(keys))
	for start := 0; start < len(keys); start += batchGetMax {
		end := min(start+batchGetMax, len(keys))
		pending := map[string]types.KeysAndAttributes{
			s.tableName: {Keys: keys[start:end]},
		}
		for len(pending) > 0 {
			out, err := s.ddbClient.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: pending,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to batch get records: %w", err)
			}
			for _, item := range out.Responses[s.tableName] {
				rec, err := unmarshalRecord(item)
				if err != nil {
					return nil, err
				}
				byID[rec.ID] = rec
			}
			pending = out.UnprocessedKeys
		}
	}

	res := make([]Record, 0, len(byID))
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok || (rec.Hidden && !includeHidden) {
			continue
		}
		delete(byID, id)
		res = append(res, rec)
	}
	return res, nil
}

func (s *DdbStore) List(ctx context.Context, f Filter) ([]Record, error) {
	var items []map[string]types.AttributeValue
	if f.ContestID != nil {
		keyCond := expression.Key("tid").Equal(expression.Value(f.ContestID.String()))
		expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build list key condition: %w", err)
		}
		p := dynamodb.NewQueryPaginator(s.ddbClient, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			IndexName:                 aws.String(contestIndex),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ScanIndexForward:          aws.Bool(false),
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to query contest records: %w", err)
			}
			items = append(items, page.Items...)
		}
	} else {
		p := dynamodb.NewScanPaginator(s.ddbClient, &dynamodb.ScanInput{
			TableName: aws.String(s.tableName),
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to scan records: %w", err)
			}
			items = append(items, page.Items...)
		}
	}

	res := make([]Record, 0, len(items))
	for _, item := range items {
		rec, err := unmarshalRecord(item)
		if err != nil {
			return nil, err
		}
		if f.match(rec) {
			res = append(res, rec)
		}
	}
	SortNewestFirst(res)
	if f.Limit > 0 && len(res) > f.Limit {
		res = res[:f.Limit]
	}
	return res, nil
}

func (s *DdbStore) Claim(ctx context.Context, id uuid.UUID, c Claim, staleBefore time.Time) (Record, bool, error) {
	waiting := expression.Name("status").Equal(expression.Value(int(StatusWaiting)))
	stale := expression.Name("status").In(
		expression.Value(int(StatusJudging)),
		expression.Value(int(StatusCompiling)),
		expression.Value(int(StatusFetched)),
	).And(expression.Name("judge_at").LessThan(expression.Value(staleBefore.UnixMilli())))
	cond := expression.AttributeExists(expression.Name("rid")).And(waiting.Or(stale))

	upd := expression.
		Set(expression.Name("status"), expression.Value(int(c.status()))).
		Set(expression.Name("judge_uid"), expression.Value(c.JudgeUID)).
		Set(expression.Name("judge_token"), expression.Value(c.Token)).
		Set(expression.Name("judge_at"), expression.Value(c.At.UnixMilli())).
		Set(expression.Name("compiler_texts"), expression.Value([]string{})).
		Set(expression.Name("judge_texts"), expression.Value([]string{})).
		Set(expression.Name("cases"), expression.Value([]CaseResult{})).
		Set(expression.Name("progress"), expression.Value(0.0))

	return s.conditionalUpdate(ctx, id, upd, cond)
}

func (s *DdbStore) ApplyProgress(ctx context.Context, id uuid.UUID, judgeUID, token string, p Progress) (Record, bool, error) {
	var upd expression.UpdateBuilder
	empty := true
	set := func(name string, v interface{}) {
		upd = upd.Set(expression.Name(name), expression.Value(v))
		empty = false
	}
	appendTo := func(name string, v interface{}) {
		upd = upd.Set(expression.Name(name), expression.ListAppend(expression.Name(name), expression.Value(v)))
		empty = false
	}
	if p.Status != nil {
		set("status", int(*p.Status))
	}
	if p.Progress != nil {
		set("progress", *p.Progress)
	}
	if len(p.Cases) > 0 {
		appendTo("cases", p.Cases)
	}
	if len(p.CompilerTexts) > 0 {
		appendTo("compiler_texts", p.CompilerTexts)
	}
	if len(p.JudgeTexts) > 0 {
		appendTo("judge_texts", p.JudgeTexts)
	}
	if empty {
		// nothing to write; still report whether the claim holds
		set("judge_token", token)
	}
	return s.claimedUpdate(ctx, id, upd, judgeUID, token)
}

func (s *DdbStore) Finish(ctx context.Context, id uuid.UUID, judgeUID, token string, r Result) (Record, bool, error) {
	upd := expression.
		Set(expression.Name("status"), expression.Value(int(r.Status))).
		Set(expression.Name("score"), expression.Value(r.Score)).
		Set(expression.Name("time_ms"), expression.Value(r.TimeMs)).
		Set(expression.Name("memory_kib"), expression.Value(r.MemoryKiB)).
		Set(expression.Name("judge_token"), expression.Value("")).
		Remove(expression.Name("progress"))
	return s.claimedUpdate(ctx, id, upd, judgeUID, token)
}

func (s *DdbStore) Reset(ctx context.Context, id uuid.UUID) (Record, error) {
	upd := expression.
		Set(expression.Name("status"), expression.Value(int(StatusWaiting))).
		Set(expression.Name("score"), expression.Value(0)).
		Set(expression.Name("time_ms"), expression.Value(0)).
		Set(expression.Name("memory_kib"), expression.Value(0)).
		Set(expression.Name("judge_uid"), expression.Value("")).
		Set(expression.Name("judge_token"), expression.Value("")).
		Set(expression.Name("rejudged"), expression.Value(true)).
		Remove(expression.Name("judge_at")).
		Remove(expression.Name("progress")).
		Remove(expression.Name("cases")).
		Remove(expression.Name("compiler_texts")).
		Remove(expression.Name("judge_texts"))
	cond := expression.AttributeExists(expression.Name("rid"))
	rec, ok, err := s.conditionalUpdate(ctx, id, upd, cond)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, ErrRecordNotFound()
	}
	return rec, nil
}

// claimedUpdate applies upd only while (judgeUID, token) hold the claim.
func (s *DdbStore) claimedUpdate(ctx context.Context, id uuid.UUID, upd expression.UpdateBuilder, judgeUID, token string) (Record, bool, error) {
	rec, ok, err := s.conditionalUpdate(ctx, id, upd, claimHeld(judgeUID, token))
	if err != nil || !ok {
		return Record{}, false, err
	}
	return rec, true, nil
}

func claimHeld(judgeUID, token string) expression.ConditionBuilder {
	return expression.Name("judge_uid").Equal(expression.Value(judgeUID)).
		And(expression.Name("judge_token").Equal(expression.Value(token))).
		And(expression.Name("judge_token").NotEqual(expression.Value("")))
}

// conditionalUpdate runs one UpdateItem. A failed condition is reported as
// ok=false together with the item as it was (empty if the item is missing).
func (s *DdbStore) conditionalUpdate(ctx context.Context, id uuid.UUID, upd expression.UpdateBuilder, cond expression.ConditionBuilder) (Record, bool, error) {
	expr, err := expression.NewBuilder().WithUpdate(upd).WithCondition(cond).Build()
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to build update expression: %w", err)
	}
	out, err := s.ddbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(s.tableName),
		Key:                                 s.key(id),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			if len(condFailed.Item) == 0 {
				return Record{}, false, nil
			}
			rec, err := unmarshalRecord(condFailed.Item)
			if err != nil {
				return Record{}, false, err
			}
			return rec, false, nil
		}
		return Record{}, false, fmt.Errorf("failed to update record: %w", err)
	}
	rec, err := unmarshalRecord(out.Attributes)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func unmarshalRecord(item map[string]types.AttributeValue) (Record, error) {
	var row recordRow
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal record row: %w", err)
	}
	return fromRow(row)
}
