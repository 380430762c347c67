package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// StreamMessage Redis Streams 消息
type StreamMessage struct {
	Stream string
	ID     string
	Values map[string]interface{}
}

// PublishToStream 发布消息到 Redis Streams（所有值统一转为字符串）
func PublishToStream(ctx context.Context, client *redis.Client, stream string, values map[string]interface{}) (string, error) {
	streamValues := make(map[string]interface{}, len(values))
	for k, v := range values {
		var strValue string
		switch val := v.(type) {
		case string:
			strValue = val
		case []byte:
			strValue = string(val)
		case int:
			strValue = strconv.Itoa(val)
		case int64:
			strValue = strconv.FormatInt(val, 10)
		case float64:
			strValue = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			strValue = strconv.FormatBool(val)
		default:
			jsonBytes, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("failed to marshal stream value %s: %w", k, err)
			}
			strValue = string(jsonBytes)
		}
		streamValues[k] = strValue
	}

	return client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: streamValues,
	}).Result()
}

// PublishJSONToStream 发布 JSON 消息到 Redis Streams（data + timestamp 两个字段）
func PublishJSONToStream(ctx context.Context, client *redis.Client, stream string, data interface{}) (string, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stream payload: %w", err)
	}

	return PublishToStream(ctx, client, stream, map[string]interface{}{
		"data":      string(jsonBytes),
		"timestamp": time.Now().Unix(),
	})
}

// ReadFromStream 以消费者组方式读取消息（block 为 0 时不阻塞）
func ReadFromStream(ctx context.Context, client *redis.Client, stream, consumerGroup, consumer string, count int64, block time.Duration) ([]StreamMessage, error) {
	args := &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}
	if block <= 0 {
		args.Block = -1
	}

	streams, err := client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []StreamMessage{}, nil
		}
		return nil, err
	}

	var messages []StreamMessage
	for _, s := range streams {
		for _, msg := range s.Messages {
			messages = append(messages, StreamMessage{
				Stream: s.Stream,
				ID:     msg.ID,
				Values: msg.Values,
			})
		}
	}

	return messages, nil
}

// AckMessages 确认已处理的消息
func AckMessages(ctx context.Context, client *redis.Client, stream, consumerGroup string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return client.XAck(ctx, stream, consumerGroup, ids...).Err()
}

// CreateConsumerGroup 创建消费者组（stream 不存在时一并创建，组已存在时忽略）
func CreateConsumerGroup(ctx context.Context, client *redis.Client, stream string, groupName string) error {
	err := client.XGroupCreateMkStream(ctx, stream, groupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}
