package reactions

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/sirupsen/logrus"
)

// LogNotifier só registra o aviso no log.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func (n *LogNotifier) OrderCompleted(_ context.Context, orderID int64) error {
	n.Log.WithField("order_id", orderID).
		Info(fmt.Sprintf("Order #%d is now completed. Sending invoice email...", orderID))
	return nil
}

// SQSAPI é o pedaço do cliente SQS que usamos; *sqs.Client satisfaz.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSNotifier publica o aviso numa fila para o envio da fatura.
type SQSNotifier struct {
	SQS      SQSAPI
	QueueURL string
	Now      func() time.Time
}

func NewSQSNotifier(client SQSAPI, queueURL string) *SQSNotifier {
	return &SQSNotifier{SQS: client, QueueURL: queueURL, Now: time.Now}
}

type completionMessage struct {
	Event       string    `json:"event"`
	OrderID     int64     `json:"order_id"`
	CompletedAt time.Time `json:"completed_at"`
}

func (n *SQSNotifier) OrderCompleted(ctx context.Context, orderID int64) error {
	body, err := json.Marshal(completionMessage{
		Event:       "order.completed",
		OrderID:     orderID,
		CompletedAt: n.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}

	msg := string(body)
	id := strconv.FormatInt(orderID, 10)
	_, err = n.SQS.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &n.QueueURL,
		MessageBody: &msg,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"order_id": {DataType: awsString("String"), StringValue: &id},
		},
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }

// Multi avisa todos os notifiers em ordem e devolve o primeiro erro.
type Multi []Notifier

func (m Multi) OrderCompleted(ctx context.Context, orderID int64) error {
	var first error
	for _, n := range m {
		if err := n.OrderCompleted(ctx, orderID); err != nil && first == nil {
			first = err
		}
	}
	return first
}
