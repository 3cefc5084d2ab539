// Package notify 定义通知的投递接口。投递是提交成功之后的附带动作，
// 失败只记录日志，不回滚投票或状态变更。
package notify

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Kind 通知类型
type Kind string

const (
	KindVoteCast        Kind = "VOTE_CAST"
	KindResultsOfficial Kind = "RESULTS_OFFICIAL"
)

// Notification 一条待发送的通知
type Notification struct {
	Kind       Kind      `json:"kind"`
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ElectionID string    `json:"electionId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Dispatcher 通知分发器
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Nop 丢弃所有通知
type Nop struct{}

func (Nop) Dispatch(context.Context, Notification) error { return nil }

// Send 发送通知并吞掉错误，只打印日志
func Send(ctx context.Context, d Dispatcher, n Notification) {
	if d == nil || n.Recipient == "" {
		return
	}
	if err := d.Dispatch(ctx, n); err != nil {
		log.Printf("发送通知失败: 类型=%s, 收件人=%s, 错误=%v", n.Kind, n.Recipient, err)
	}
}

// VoteReceipt 投票成功回执
func VoteReceipt(recipient, electionTitle, positionTitle string, at time.Time) Notification {
	return Notification{
		Kind:      KindVoteCast,
		Recipient: recipient,
		Subject:   fmt.Sprintf("投票成功: %s", electionTitle),
		Body: fmt.Sprintf("您已在「%s」中为职位「%s」完成投票。\n投票时间: %s",
			electionTitle, positionTitle, at.UTC().Format(time.RFC3339)),
		CreatedAt: at,
	}
}

// ResultsOfficial 正式结果公布通知
func ResultsOfficial(recipient, electionTitle string, at time.Time) Notification {
	return Notification{
		Kind:      KindResultsOfficial,
		Recipient: recipient,
		Subject:   fmt.Sprintf("选举结果已公布: %s", electionTitle),
		Body:      fmt.Sprintf("「%s」的正式结果已公布，请登录系统查看。", electionTitle),
		CreatedAt: at,
	}
}
