// Package mail は投票招待メールの送信を提供する。
package mail

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/hitoshi/ballotbox/internal/config"
)

// InviteSender は投票招待メールの送信インターフェース。
// 送信失敗は投票者・トークンの永続化をロールバックさせず、
// 呼び出し側で受信者ごとの警告として扱う。
type InviteSender interface {
	SendVotingInvite(ctx context.Context, email, link, electionTitle, passcode string, start, end time.Time) error
}

// SMTPSender はgomailによるInviteSenderのSMTP実装。
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// コンパイル時のインターフェース実装チェック
var _ InviteSender = (*SMTPSender)(nil)

// NewSMTPSender は設定からSMTPSenderを生成する。
func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.MailFrom,
	}
}

// SendVotingInvite は投票招待メールを1通送信する。
// リンクは1回限り有効である旨を本文に含める。
func (s *SMTPSender) SendVotingInvite(ctx context.Context, email, link, electionTitle, passcode string, start, end time.Time) error {
	message := gomail.NewMessage()
	message.SetHeader("From", s.from)
	message.SetHeader("To", email)
	message.SetHeader("Subject", fmt.Sprintf("Voting Invitation: %s", electionTitle))
	message.SetBody("text/plain", buildInviteBody(link, electionTitle, passcode, start, end))

	if err := s.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("招待メールの送信に失敗しました: %w", err)
	}
	return nil
}

func buildInviteBody(link, electionTitle, passcode string, start, end time.Time) string {
	return fmt.Sprintf(`Hello,

You have been invited to vote in the election: %s.

Election Passcode: %s

Voting starts: %s
Voting ends:   %s

Click the link below to cast your vote:
%s

Please note: this link is unique and can only be used once.

Regards,
BallotBox Team
`,
		electionTitle,
		passcode,
		start.Format("2006-01-02 15:04"),
		end.Format("2006-01-02 15:04"),
		link,
	)
}
