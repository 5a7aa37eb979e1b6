package orders

import "strconv"

const (
	TopicOrderConfirmed = "order.confirmed"
)

// Partition key = order id, so redeliveries of one order stay ordered.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }
