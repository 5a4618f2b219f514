package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tyler180/nfl-rushing-stats/internal/cache"
	"github.com/tyler180/nfl-rushing-stats/internal/export"
	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

// fake client implementing DynamoDBAPI over an in-memory item set
type fakeDDB struct {
	calls    int
	queries  int
	pageSize int
	// simulate first attempt returning unprocessed, second succeeds
	failFirst bool
	items     map[string]map[string]types.AttributeValue // Season|SK -> item
}

func newFakeDDB() *fakeDDB {
	return &fakeDDB{pageSize: 10, items: map[string]map[string]types.AttributeValue{}}
}

func itemKey(it map[string]types.AttributeValue) string {
	return getStr(it, "Season") + "|" + getStr(it, "SK")
}

func (f *fakeDDB) BatchWriteItem(ctx context.Context, in *ddb.BatchWriteItemInput, _ ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error) {
	f.calls++
	if f.failFirst {
		f.failFirst = false
		// Echo back all as unprocessed to force a retry
		return &ddb.BatchWriteItemOutput{
			UnprocessedItems: in.RequestItems,
		}, nil
	}
	for _, reqs := range in.RequestItems {
		for _, r := range reqs {
			f.items[itemKey(r.PutRequest.Item)] = r.PutRequest.Item
		}
	}
	return &ddb.BatchWriteItemOutput{}, nil
}

func (f *fakeDDB) UpdateItem(ctx context.Context, in *ddb.UpdateItemInput, _ ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error) {
	it := map[string]types.AttributeValue{}
	for k, v := range in.Key {
		it[k] = v
	}
	it["Columns"] = in.ExpressionAttributeValues[":c"]
	it["RowCount"] = in.ExpressionAttributeValues[":n"]
	it["UpdatedAt"] = in.ExpressionAttributeValues[":u"]
	f.items[itemKey(it)] = it
	return &ddb.UpdateItemOutput{}, nil
}

func (f *fakeDDB) Query(ctx context.Context, in *ddb.QueryInput, _ ...func(*ddb.Options)) (*ddb.QueryOutput, error) {
	f.queries++
	season := in.ExpressionAttributeValues[":s"].(*types.AttributeValueMemberS).Value
	var keys []string
	for k := range f.items {
		if strings.HasPrefix(k, season+"|") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := itemKey(in.ExclusiveStartKey)
		start = sort.SearchStrings(keys, after) + 1
	}
	end := start + f.pageSize
	out := &ddb.QueryOutput{}
	if end < len(keys) {
		out.LastEvaluatedKey = f.items[keys[end-1]]
	} else {
		end = len(keys)
	}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, f.items[k])
	}
	return out, nil
}

func rushingTable(n int) stats.Table {
	cols := []string{"Player", "Tm", "Age", "Pos", "Yds", "Y/A"}
	t := stats.Table{Columns: cols}
	for i := 0; i < n; i++ {
		t.Rows = append(t.Rows, stats.Row{
			"Player": stats.String(fmt.Sprintf("P%02d", i)),
			"Tm":     stats.String("ATL"),
			"Age":    stats.String("23"),
			"Pos":    stats.String("RB"),
			"Yds":    stats.Number(float64(100 * i)),
			"Y/A":    stats.String("4.5"),
		})
	}
	return t
}

var _ cache.Cache = (*Snapshots)(nil)

func TestSnapshots_BatchingAndRetry(t *testing.T) {
	// 30 rows → 25 + 5 batches
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fc := newFakeDDB()
	fc.failFirst = true
	s := NewSnapshots(fc, "tbl")
	if err := s.Set(ctx, 2019, rushingTable(30)); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	// First batch is attempted twice (one retry), second batch once.
	if fc.calls != 3 {
		t.Fatalf("expected 3 BatchWriteItem calls, got %d", fc.calls)
	}
	if len(fc.items) != 31 {
		t.Fatalf("expected 30 rows + meta, got %d items", len(fc.items))
	}
}

func TestSnapshots_RoundTripWithPaging(t *testing.T) {
	ctx := context.Background()
	fc := newFakeDDB()
	s := NewSnapshots(fc, "tbl")

	in := rushingTable(27)
	in.Rows[3]["Y/A"] = stats.Missing()
	if err := s.Set(ctx, 2019, in); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := s.Get(ctx, 2019)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if fc.queries != 3 {
		t.Fatalf("expected 3 query pages for 28 items, got %d", fc.queries)
	}
	if strings.Join(got.Columns, ",") != strings.Join(in.Columns, ",") {
		t.Fatalf("columns = %v, want %v", got.Columns, in.Columns)
	}
	if got.Len() != in.Len() {
		t.Fatalf("rows = %d, want %d", got.Len(), in.Len())
	}
	for i := range in.Rows {
		if g, w := strings.Join(got.Record(i), ","), strings.Join(in.Record(i), ","); g != w {
			t.Fatalf("row %d = %q, want %q", i, g, w)
		}
	}
	if !got.Rows[3]["Y/A"].IsMissing() {
		t.Fatalf("missing cell came back as %q", got.Rows[3]["Y/A"].String())
	}
}

func TestSnapshots_ShorterRewriteAndMiss(t *testing.T) {
	ctx := context.Background()
	fc := newFakeDDB()
	s := NewSnapshots(fc, "tbl")

	if _, ok, err := s.Get(ctx, 1990); ok || err != nil {
		t.Fatalf("empty season: ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, 2019, rushingTable(12)); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, 2019, rushingTable(4)); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(ctx, 2019)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Len() != 4 {
		t.Fatalf("stale rows leaked: got %d rows, want 4", got.Len())
	}

	// meta claims more rows than exist
	fc.items["2019|"+metaSK]["RowCount"] = &types.AttributeValueMemberN{Value: "99"}
	if _, _, err := s.Get(ctx, 2019); !errors.Is(err, errBadSnapshot) {
		t.Fatalf("err = %v, want errBadSnapshot", err)
	}
}

type fakeS3 struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestPublisher(t *testing.T) {
	a, err := export.Export(rushingTable(2))
	if err != nil {
		t.Fatal(err)
	}
	fs := &fakeS3{}
	p := NewPublisher(fs, "bucket", "/exports/rushing/")
	key, err := p.Publish(context.Background(), 2019, a)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if key != "exports/rushing/season=2019/playerstats.csv" {
		t.Fatalf("key = %q", key)
	}
	if *fs.in.Bucket != "bucket" || *fs.in.ContentType != "text/csv" {
		t.Fatalf("unexpected input: bucket=%q type=%q", *fs.in.Bucket, *fs.in.ContentType)
	}
	if fs.body != a.CSV {
		t.Fatalf("body = %q, want %q", fs.body, a.CSV)
	}

	if got := NewPublisher(fs, "b", "").Key(1990); got != "season=1990/playerstats.csv" {
		t.Fatalf("Key = %q", got)
	}

	fs.err = errors.New("AccessDenied")
	if _, err := p.Publish(context.Background(), 2019, a); err == nil {
		t.Fatal("expected error")
	}
}

func TestPublisherRoot(t *testing.T) {
	if got := NewPublisher(&fakeS3{}, "bucket", "/exports/rushing/").Root(); got != "s3://bucket/exports/rushing/" {
		t.Fatalf("Root = %q", got)
	}
	if got := NewPublisher(&fakeS3{}, "bucket", "").Root(); got != "s3://bucket/" {
		t.Fatalf("Root = %q", got)
	}
}
