package benchmark

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/vnykmshr/reactflow/pkg/sales"
	"github.com/vnykmshr/reactflow/pkg/store/memstore"
)

var errSkip = errors.New("skip")

func seededService(b *testing.B, customers, ordersEach int) *sales.Service {
	b.Helper()
	s := memstore.New()
	svc := sales.NewService(
		memstore.NewCollection[sales.Customer](s, "customers"),
		memstore.NewCollection[sales.Order](s, "orders"),
	)
	ctx := context.Background()
	for c := 0; c < customers; c++ {
		id := fmt.Sprintf("c%d", c)
		if _, _, err := svc.CreateCustomer(sales.Customer{ID: id, Name: id}).Block(ctx); err != nil {
			b.Fatal(err)
		}
		for o := 0; o < ordersEach; o++ {
			if _, _, err := svc.CreateOrder(sales.Order{CustomerID: id, Total: float64(o)}).Block(ctx); err != nil {
				b.Fatal(err)
			}
		}
	}
	return svc
}

// BenchmarkSummary measures the aggregation pipeline over the memory store.
func BenchmarkSummary(b *testing.B) {
	for _, customers := range []int{10, 100} {
		b.Run(fmt.Sprintf("customers=%d", customers), func(b *testing.B) {
			svc := seededService(b, customers, 5)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := svc.Summary().Block(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
