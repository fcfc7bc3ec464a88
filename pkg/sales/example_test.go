package sales_test

import (
	"context"
	"fmt"

	"github.com/vnykmshr/reactflow/pkg/sales"
	"github.com/vnykmshr/reactflow/pkg/store/memstore"
)

func ExampleService_Summary() {
	s := memstore.New()
	svc := sales.NewService(
		memstore.NewCollection[sales.Customer](s, "customers"),
		memstore.NewCollection[sales.Order](s, "orders"),
	)
	ctx := context.Background()

	svc.CreateCustomer(sales.Customer{ID: "1", Name: "Alice"}).Block(ctx)
	svc.CreateCustomer(sales.Customer{ID: "2", Name: "Bob"}).Block(ctx)
	svc.CreateOrder(sales.Order{CustomerID: "1", Total: 10}).Block(ctx)
	svc.CreateOrder(sales.Order{CustomerID: "1", Total: 5}).Block(ctx)
	svc.CreateOrder(sales.Order{CustomerID: "2", Total: 7}).Block(ctx)

	summary, _, err := svc.Summary().Block(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("Alice:", summary["Alice"])
	fmt.Println("Bob:", summary["Bob"])
	// Output:
	// Alice: 15
	// Bob: 7
}
