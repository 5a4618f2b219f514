package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

type DynamoDBAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Item layout: PK=Season (S), SK=SK (S).
//
//	SK "#meta"      Columns (L of S), RowCount (N), UpdatedAt (N)
//	SK "row#00001"  Cells (M of column -> S | NULL)
//
// Rows go in first and the meta item last, so a snapshot without meta is
// treated as absent. RowCount bounds reads when an older, longer snapshot
// left rows behind.
const (
	metaSK    = "#meta"
	rowPrefix = "row#"
)

var errBadSnapshot = errors.New("malformed snapshot")

func rowSK(i int) string { return fmt.Sprintf("%s%05d", rowPrefix, i+1) }

// Snapshots persists cleaned season tables. It satisfies cache.Cache.
type Snapshots struct {
	ddb   DynamoDBAPI
	table string
	now   func() time.Time
}

func NewSnapshots(ddb DynamoDBAPI, tableName string) *Snapshots {
	return &Snapshots{ddb: ddb, table: tableName, now: time.Now}
}

// Set writes every row then the meta item.
func (s *Snapshots) Set(ctx context.Context, year int, t stats.Table) error {
	season := strconv.Itoa(year)
	const maxBatch = 25

	for i := 0; i < len(t.Rows); i += maxBatch {
		end := i + maxBatch
		if end > len(t.Rows) {
			end = len(t.Rows)
		}

		reqs := make([]types.WriteRequest, 0, end-i)
		for j := i; j < end; j++ {
			item := map[string]types.AttributeValue{
				"Season": &types.AttributeValueMemberS{Value: season},
				"SK":     &types.AttributeValueMemberS{Value: rowSK(j)},
				"Cells":  &types.AttributeValueMemberM{Value: encodeCells(t.Columns, t.Rows[j])},
			}
			reqs = append(reqs, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}
		if err := batchWriteWithRetry(ctx, s.ddb, s.table, reqs); err != nil {
			return fmt.Errorf("batch write season %s rows: %w", season, err)
		}
	}

	cols := make([]types.AttributeValue, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = &types.AttributeValueMemberS{Value: c}
	}
	now := strconv.FormatInt(s.now().Unix(), 10)
	_, err := s.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"Season": &types.AttributeValueMemberS{Value: season},
			"SK":     &types.AttributeValueMemberS{Value: metaSK},
		},
		UpdateExpression: aws.String("SET #cols = :c, RowCount = :n, UpdatedAt = :u"),
		// COLUMNS is a reserved word
		ExpressionAttributeNames: map[string]string{"#cols": "Columns"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberL{Value: cols},
			":n": &types.AttributeValueMemberN{Value: strconv.Itoa(len(t.Rows))},
			":u": &types.AttributeValueMemberN{Value: now},
		},
	})
	if err != nil {
		return fmt.Errorf("update season %s meta: %w", season, err)
	}
	return nil
}

// Get reads a season back. A season with no meta item is a miss.
func (s *Snapshots) Get(ctx context.Context, year int) (stats.Table, bool, error) {
	season := strconv.Itoa(year)

	var (
		meta     map[string]types.AttributeValue
		rowItems = map[string]map[string]types.AttributeValue{}
		lastKey  map[string]types.AttributeValue
	)
	for {
		out, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.table),
			KeyConditionExpression:    aws.String("#S = :s"),
			ExpressionAttributeNames:  map[string]string{"#S": "Season"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":s": &types.AttributeValueMemberS{Value: season}},
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return stats.Table{}, false, fmt.Errorf("query season %s: %w", season, err)
		}
		for _, it := range out.Items {
			sk := getStr(it, "SK")
			if sk == metaSK {
				meta = it
				continue
			}
			rowItems[sk] = it
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		lastKey = out.LastEvaluatedKey
	}
	if meta == nil {
		return stats.Table{}, false, nil
	}

	t, err := decodeSnapshot(meta, rowItems)
	if err != nil {
		return stats.Table{}, false, fmt.Errorf("season %s: %w", season, err)
	}
	return t, true, nil
}

func decodeSnapshot(meta map[string]types.AttributeValue, rowItems map[string]map[string]types.AttributeValue) (stats.Table, error) {
	colsAttr, ok := meta["Columns"].(*types.AttributeValueMemberL)
	if !ok {
		return stats.Table{}, fmt.Errorf("%w: meta has no Columns", errBadSnapshot)
	}
	var t stats.Table
	for _, v := range colsAttr.Value {
		sv, ok := v.(*types.AttributeValueMemberS)
		if !ok {
			return stats.Table{}, fmt.Errorf("%w: non-string column name", errBadSnapshot)
		}
		t.Columns = append(t.Columns, sv.Value)
	}

	n := getNum(meta, "RowCount")
	for i := 0; i < n; i++ {
		it, ok := rowItems[rowSK(i)]
		if !ok {
			return stats.Table{}, fmt.Errorf("%w: row %d of %d missing", errBadSnapshot, i+1, n)
		}
		cells, _ := it["Cells"].(*types.AttributeValueMemberM)
		t.Rows = append(t.Rows, decodeCells(t.Columns, cells))
	}
	return t, nil
}

func encodeCells(cols []string, r stats.Row) map[string]types.AttributeValue {
	m := make(map[string]types.AttributeValue, len(cols))
	for _, c := range cols {
		v := r[c]
		if v.IsMissing() {
			m[c] = &types.AttributeValueMemberNULL{Value: true}
			continue
		}
		m[c] = &types.AttributeValueMemberS{Value: v.String()}
	}
	return m
}

func decodeCells(cols []string, cells *types.AttributeValueMemberM) stats.Row {
	r := make(stats.Row, len(cols))
	for _, c := range cols {
		r[c] = stats.Missing()
		if cells == nil {
			continue
		}
		if sv, ok := cells.Value[c].(*types.AttributeValueMemberS); ok {
			r[c] = stats.String(sv.Value)
		}
	}
	return r
}

func getStr(it map[string]types.AttributeValue, k string) string {
	if v, ok := it[k].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func getNum(it map[string]types.AttributeValue, k string) int {
	switch v := it[k].(type) {
	case *types.AttributeValueMemberN:
		n, _ := strconv.Atoi(v.Value)
		return n
	case *types.AttributeValueMemberS:
		n, _ := strconv.Atoi(v.Value)
		return n
	}
	return 0
}

func batchWriteWithRetry(ctx context.Context, ddb DynamoDBAPI, table string, reqs []types.WriteRequest) error {
	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{table: reqs},
	}
	const maxAttempts = 6
	backoff := 120 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := ddb.BatchWriteItem(ctx, input)
		if err != nil {
			return err
		}
		if len(out.UnprocessedItems) == 0 {
			return nil
		}
		input.RequestItems = out.UnprocessedItems
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff += 120 * time.Millisecond
		}
	}
	return fmt.Errorf("unprocessed items remained after retries for table %s", table)
}
