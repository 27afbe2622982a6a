package main

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"market-etl/internal/ch"
	"market-etl/internal/config"
	ikafka "market-etl/internal/kafka"
	"market-etl/internal/metrics"
	"market-etl/internal/model"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed int
}

func (f *fakeReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed += len(msgs)
	return nil
}

type fakeStore struct {
	ads      []model.UnifiedAd
	orders   []model.UnifiedOrder
	items    []model.OrderItemRecord
	products []model.UnifiedProduct
	ga4      []model.GA4Record
	dead     []model.ErrorRecord
}

func (s *fakeStore) InsertAds(_ context.Context, r []model.UnifiedAd) error {
	s.ads = append(s.ads, r...)
	return nil
}

func (s *fakeStore) InsertOrders(_ context.Context, r []model.UnifiedOrder) error {
	s.orders = append(s.orders, r...)
	return nil
}

func (s *fakeStore) InsertOrderItems(_ context.Context, r []model.OrderItemRecord) error {
	s.items = append(s.items, r...)
	return nil
}

func (s *fakeStore) InsertProducts(_ context.Context, r []model.UnifiedProduct) error {
	s.products = append(s.products, r...)
	return nil
}

func (s *fakeStore) InsertGA4(_ context.Context, r []model.GA4Record) error {
	s.ga4 = append(s.ga4, r...)
	return nil
}

func (s *fakeStore) InsertDeadLetters(_ context.Context, r []model.ErrorRecord) error {
	s.dead = append(s.dead, r...)
	return nil
}

func message(t *testing.T, offset int64, v any) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: raw}
}

func TestJobsRouteEachTopicToItsTable(t *testing.T) {
	cfg := config.Config{
		KafkaUnifiedTopics: map[string]string{
			model.DomainAds:      "etl.unified.ads",
			model.DomainOrders:   "etl.unified.orders",
			model.DomainProducts: "etl.unified.products",
			model.DomainGA4:      "etl.unified.ga4",
		},
		KafkaItemsTopic: "etl.unified.order_items",
		KafkaDeadTopic:  "etl.dead_letters",
		BatchSize:       10,
		BatchInterval:   time.Hour,
	}
	readers := map[string]*fakeReader{
		"etl.unified.ads":         {msgs: []kafka.Message{message(t, 0, model.UnifiedAd{RecordID: "ad-1"})}},
		"etl.unified.orders":      {msgs: []kafka.Message{message(t, 0, model.UnifiedOrder{OrderID: "shopee_1"})}},
		"etl.unified.order_items": {msgs: []kafka.Message{message(t, 0, model.OrderItemRecord{OrderID: "shopee_1"}), message(t, 1, model.OrderItemRecord{OrderID: "shopee_1"})}},
		"etl.unified.products":    {msgs: []kafka.Message{message(t, 0, model.UnifiedProduct{ProductID: "shopee_9"})}},
		"etl.unified.ga4":         {msgs: []kafka.Message{message(t, 0, model.GA4Record{Report: model.GA4ReportPages, Page: &model.GA4Page{RecordID: "ga4_page_p_1_"}})}},
		"etl.dead_letters":        {msgs: []kafka.Message{message(t, 0, model.ErrorRecord{SourcePlatform: "lazada"}), {Offset: 1, Value: []byte("{")}}},
	}
	open := func(topic string) ikafka.MessageReader {
		r, ok := readers[topic]
		require.True(t, ok, topic)
		return r
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	st := &fakeStore{}

	js := jobs(cfg, st, open, metrics.NewRegistry(), log)
	require.Len(t, js, 6)
	tables := make([]string, 0, len(js))
	for _, j := range js {
		tables = append(tables, j.table)
		require.NoError(t, j.run(context.Background()))
	}
	require.Equal(t, []string{ch.TableAds, ch.TableOrders, ch.TableOrderItems, ch.TableProducts, model.DomainGA4, ch.TableDeadLetters}, tables)

	require.Equal(t, "ad-1", st.ads[0].RecordID)
	require.Equal(t, "shopee_1", st.orders[0].OrderID)
	require.Len(t, st.items, 2)
	require.Equal(t, "shopee_9", st.products[0].ProductID)
	require.Equal(t, "ga4_page_p_1_", st.ga4[0].RecordID())
	require.Len(t, st.dead, 1, "undecodable rows are skipped")
	require.Equal(t, 2, readers["etl.dead_letters"].committed, "skipped rows are still committed")
}

var _ store = (*ch.Client)(nil)
