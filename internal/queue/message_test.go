package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"skills-backend/internal/shared/telemetry"
)

type fakeSender struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSender) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSClientSendsEncodedMessage(t *testing.T) {
	fake := &fakeSender{}
	c := &SQSClient{client: fake, queueURL: "https://sqs.example/queue"}

	msg := Message{RunID: "run-1", OwnerID: "user-1", Stage: "complete", TokenCost: 3, Version: MessageVersion}
	if err := c.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if aws.ToString(fake.input.QueueUrl) != "https://sqs.example/queue" {
		t.Fatalf("unexpected queue url %q", aws.ToString(fake.input.QueueUrl))
	}
	var got Message
	if err := json.Unmarshal([]byte(aws.ToString(fake.input.MessageBody)), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.RunID != "run-1" || got.TokenCost != 3 {
		t.Fatalf("unexpected message %+v", got)
	}
	if attr := fake.input.MessageAttributes["stage"]; aws.ToString(attr.StringValue) != "complete" {
		t.Fatalf("expected stage attribute, got %+v", attr)
	}
}

func TestSQSClientWrapsSendError(t *testing.T) {
	c := &SQSClient{client: &fakeSender{err: errors.New("throttled")}, queueURL: "q"}
	if err := c.Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewSQSClientRequiresURL(t *testing.T) {
	if _, err := NewSQSClient(context.Background(), " ", "us-east-1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLogClientWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(telemetry.SetOutput(&buf))

	msg := Message{RunID: "run-9", OwnerID: "guest:g1", Stage: "failed", ErrorKind: "storage_error", Version: MessageVersion}
	if err := (LogClient{}).Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"msg":"pipeline.event"`, `"run_id":"run-9"`, `"error_kind":"storage_error"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
	if strings.Contains(out, "document_id") {
		t.Fatalf("expected empty document id to be omitted: %s", out)
	}
}
