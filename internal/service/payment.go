package service

import (
	"context"
	"errors"
	"fmt"
	"merchant-phone-search/internal/client"
	"merchant-phone-search/internal/config"
	"merchant-phone-search/internal/dto"
	"merchant-phone-search/internal/model"
	"merchant-phone-search/internal/repository"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidMembership  = errors.New("invalid membership type")
	ErrProviderOrder      = errors.New("payment provider rejected the order")
	errMissingNotifyField = errors.New("notification missing required field")
)

// Ack is the two-field acknowledgment the payment provider expects back from
// the notification webhook. The provider only inspects ReturnCode.
type Ack struct {
	ReturnCode string
	ReturnMsg  string
}

func ackSuccess() Ack {
	return Ack{ReturnCode: "SUCCESS", ReturnMsg: "OK"}
}

func ackFail(msg string) Ack {
	return Ack{ReturnCode: "FAIL", ReturnMsg: msg}
}

// PaymentNotification is the typed view of the provider's callback payload.
// Raw keeps every delivered field because the signature covers all of them.
type PaymentNotification struct {
	ReturnCode    string
	ReturnMsg     string
	ResultCode    string
	ErrCodeDes    string
	OutTradeNo    string
	TotalFee      int64
	TransactionID string
	AppID         string
	MchID         string

	Raw map[string]string
}

func parseNotification(fields map[string]string) (*PaymentNotification, error) {
	n := &PaymentNotification{
		ReturnCode:    fields["return_code"],
		ReturnMsg:     fields["return_msg"],
		ResultCode:    fields["result_code"],
		ErrCodeDes:    fields["err_code_des"],
		OutTradeNo:    fields["out_trade_no"],
		TransactionID: fields["transaction_id"],
		AppID:         fields["appid"],
		MchID:         fields["mch_id"],
		Raw:           fields,
	}

	if fee, ok := fields["total_fee"]; ok && fee != "" {
		v, err := strconv.ParseInt(fee, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("total_fee %q: %w", fee, errMissingNotifyField)
		}
		n.TotalFee = v
	}

	// the success path must fail closed on missing required fields
	if n.ResultCode == "SUCCESS" {
		for name, v := range map[string]string{
			"out_trade_no":   n.OutTradeNo,
			"transaction_id": n.TransactionID,
			"appid":          n.AppID,
			"mch_id":         n.MchID,
			"total_fee":      fields["total_fee"],
		} {
			if v == "" {
				return nil, fmt.Errorf("%s: %w", name, errMissingNotifyField)
			}
		}
	}

	return n, nil
}

type PaymentService interface {
	CreateOrder(ctx context.Context, userID string, tier model.MembershipType, clientIP string) (*dto.CreateOrderResponse, error)
	QueryOrder(ctx context.Context, userID, outTradeNo string) (*dto.OrderStatusResponse, error)
	// HandleNotification reconciles a provider callback: signature and
	// integrity checks, an exactly-once pending → paid transition, and the
	// membership upgrade of the owning user.
	HandleNotification(ctx context.Context, body []byte) Ack
}

type paymentServiceImpl struct {
	wechatClient client.WechatPayClient
	userRepo     repository.UserRepository
	intentRepo   repository.PaymentIntentRepository
	cfg          config.WechatPay
	membership   config.Membership
	now          func() time.Time
}

func NewPaymentService(
	wechatClient client.WechatPayClient,
	userRepo repository.UserRepository,
	intentRepo repository.PaymentIntentRepository,
	cfg *config.WechatPay,
	membership *config.Membership,
) PaymentService {
	return &paymentServiceImpl{
		wechatClient: wechatClient,
		userRepo:     userRepo,
		intentRepo:   intentRepo,
		cfg:          *cfg,
		membership:   *membership,
		now:          time.Now,
	}
}

func (s *paymentServiceImpl) tierPrice(tier model.MembershipType) (int64, error) {
	switch tier {
	case model.MembershipStandard:
		return s.membership.StandardPrice, nil
	case model.MembershipPremium:
		return s.membership.PremiumPrice, nil
	default:
		return 0, ErrInvalidMembership
	}
}

func (s *paymentServiceImpl) tierDuration(tier model.MembershipType) time.Duration {
	days := s.membership.StandardDurationDays
	if tier == model.MembershipPremium {
		days = s.membership.PremiumDurationDays
	}
	return time.Duration(days) * 24 * time.Hour
}

func (s *paymentServiceImpl) CreateOrder(ctx context.Context, userID string, tier model.MembershipType, clientIP string) (*dto.CreateOrderResponse, error) {
	amount, err := s.tierPrice(tier)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	suffix := user.ID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	outTradeNo := fmt.Sprintf("%s%d%s", s.cfg.MchID, s.now().UnixMilli(), suffix)

	intent := &model.PaymentIntent{
		OutTradeNo:     outTradeNo,
		UserID:         user.ID,
		MembershipType: tier,
		Amount:         amount,
		Status:         model.PaymentPending,
	}
	if err := s.intentRepo.Create(ctx, intent); err != nil {
		return nil, fmt.Errorf("store payment intent: %w", err)
	}

	description := fmt.Sprintf("%s 会员升级", tier)
	result, err := s.wechatClient.CreateNativeOrder(ctx, outTradeNo, amount, description, clientIP)
	if err != nil {
		if _, markErr := s.intentRepo.MarkFailed(ctx, outTradeNo, err.Error()); markErr != nil {
			log.Error().Err(markErr).Str("out_trade_no", outTradeNo).
				Msg("mark intent failed after unified order error")
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderOrder, err)
	}

	return &dto.CreateOrderResponse{
		CodeURL:    result.CodeURL,
		OutTradeNo: outTradeNo,
	}, nil
}

func (s *paymentServiceImpl) QueryOrder(ctx context.Context, userID, outTradeNo string) (*dto.OrderStatusResponse, error) {
	intent, err := s.intentRepo.FindByOutTradeNoAndUser(ctx, outTradeNo, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return &dto.OrderStatusResponse{
		OutTradeNo:     intent.OutTradeNo,
		Status:         string(intent.Status),
		MembershipType: string(intent.MembershipType),
		Amount:         intent.Amount,
		CreatedAt:      intent.CreatedAt,
		PaidAt:         intent.PaidAt,
	}, nil
}

func (s *paymentServiceImpl) HandleNotification(ctx context.Context, body []byte) Ack {
	fields, err := client.DecodeXMLFields(body)
	if err != nil {
		log.Warn().Err(err).Msg("payment notification: unparseable body")
		return ackFail("invalid notification")
	}

	// transport-level failure: let the provider retry
	if fields["return_code"] != "SUCCESS" {
		log.Warn().Str("return_code", fields["return_code"]).
			Msg("payment notification: communication failure")
		return ackFail("communication failure")
	}

	if !s.wechatClient.VerifySign(fields) {
		log.Warn().Str("out_trade_no", fields["out_trade_no"]).
			Msg("payment notification: signature verification failed")
		return ackFail("signature verification failed")
	}

	notification, err := parseNotification(fields)
	if err != nil {
		log.Warn().Err(err).Msg("payment notification: invalid payload")
		return ackFail("invalid notification payload")
	}

	if notification.ResultCode != "SUCCESS" {
		return s.handleBusinessFailure(ctx, notification)
	}

	return s.handleBusinessSuccess(ctx, notification)
}

// handleBusinessFailure records the provider's error on a still-pending
// intent. The ack is SUCCESS either way so the provider stops retrying.
func (s *paymentServiceImpl) handleBusinessFailure(ctx context.Context, n *PaymentNotification) Ack {
	reason := n.ErrCodeDes
	if reason == "" {
		reason = n.ReturnMsg
	}
	if reason == "" {
		reason = "unknown provider error"
	}

	if n.OutTradeNo != "" {
		transitioned, err := s.intentRepo.MarkFailed(ctx, n.OutTradeNo,
			fmt.Sprintf("provider business failure: %s (transaction: %s)", reason, n.TransactionID))
		if err != nil {
			log.Error().Err(err).Str("out_trade_no", n.OutTradeNo).
				Msg("payment notification: mark failed errored")
		} else if !transitioned {
			log.Info().Str("out_trade_no", n.OutTradeNo).
				Msg("payment notification: business failure for non-pending order, ignored")
		}
	}

	return ackSuccess()
}

func (s *paymentServiceImpl) handleBusinessSuccess(ctx context.Context, n *PaymentNotification) Ack {
	intent, err := s.intentRepo.FindByOutTradeNo(ctx, n.OutTradeNo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// unknown order: acknowledge so the provider stops retrying
			log.Warn().Str("out_trade_no", n.OutTradeNo).
				Msg("payment notification: no matching order")
			return ackSuccess()
		}
		log.Error().Err(err).Str("out_trade_no", n.OutTradeNo).
			Msg("payment notification: order lookup failed")
		return ackFail("order lookup failed")
	}

	if intent.Status != model.PaymentPending {
		// duplicate delivery after a terminal transition: idempotent no-op
		return ackSuccess()
	}

	// integrity check: notified amount and merchant identity must match the
	// stored order exactly
	if n.TotalFee != intent.Amount || n.AppID != s.cfg.AppID || n.MchID != s.cfg.MchID {
		log.Error().
			Str("out_trade_no", n.OutTradeNo).
			Int64("notified_fee", n.TotalFee).
			Int64("order_amount", intent.Amount).
			Msg("payment notification: security check failed")

		if _, markErr := s.intentRepo.MarkFailed(ctx, n.OutTradeNo,
			"security check failed: amount/appid/mch_id mismatch"); markErr != nil {
			log.Error().Err(markErr).Str("out_trade_no", n.OutTradeNo).
				Msg("payment notification: mark failed errored")
		}
		return ackFail("security check failed")
	}

	paidAt := s.now()
	transitioned, err := s.intentRepo.MarkPaid(ctx, n.OutTradeNo, n.TransactionID, paidAt)
	if err != nil {
		log.Error().Err(err).Str("out_trade_no", n.OutTradeNo).
			Msg("payment notification: mark paid errored")
		return ackFail("order update failed")
	}
	if !transitioned {
		// lost the race against a concurrent duplicate notification
		return ackSuccess()
	}

	expiry := paidAt.Add(s.tierDuration(intent.MembershipType))
	if err := s.userRepo.UpdateMembership(ctx, intent.UserID, intent.MembershipType, expiry); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// order stays paid; this inconsistency needs an operator
			log.Error().
				Str("out_trade_no", n.OutTradeNo).
				Str("user_id", intent.UserID).
				Msg("payment notification: paid order has no owning user")
			return ackSuccess()
		}
		log.Error().Err(err).Str("out_trade_no", n.OutTradeNo).
			Msg("payment notification: membership update failed")
		return ackFail("membership update failed")
	}

	log.Info().
		Str("out_trade_no", n.OutTradeNo).
		Str("user_id", intent.UserID).
		Str("membership", string(intent.MembershipType)).
		Time("expiry", expiry).
		Msg("order paid, membership upgraded")

	return ackSuccess()
}
