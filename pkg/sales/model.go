package sales

// Customer is a buyer. Identity is ID.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func (c Customer) DocumentID() string { return c.ID }

func (c Customer) WithDocumentID(id string) Customer {
	c.ID = id
	return c
}

// Order references the Customer it belongs to through CustomerID.
type Order struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customerId"`
	Total      float64 `json:"total"`
}

func (o Order) DocumentID() string { return o.ID }

func (o Order) WithDocumentID(id string) Order {
	o.ID = id
	return o
}

// CustomerIDField is the JSON name of Order.CustomerID, used in order queries.
const CustomerIDField = "customerId"
