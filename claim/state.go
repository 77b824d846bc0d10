/*
state.go - The claim period state catalog

PURPOSE:
  Names every state a claim period can occupy and the predicates the
  routing logic asks of them. The document-collection states encode three
  axes at once:

    - which documents are still missing (application, employer notice)
    - whether the period extends a running episode or opens a new one
      after a gap (an extension does not need an employer notice)
    - whether an earlier period for the same employer is still unfinished
      ("unsettled"); unsettled periods hold their results until the
      earlier one reaches a terminal state

  Downstream of document collection the chain is linear: eligibility,
  benefit history, payment simulation, manual approval, paying.

ESCAPE HATCH:
  HandedToLegacySystem is reachable from every non-terminal state. It is
  terminal for this engine; a human takes over.

SEE ALSO:
  - period.go: the transitions between these states
*/
package claim

// State is the processing state of one claim period.
type State string

const (
	// === Document collection, new episode after a gap ===

	StateAwaitingApplicationAndNoticeGap          State = "awaiting_application_and_notice_gap"
	StateAwaitingApplicationAndNoticeGapUnsettled State = "awaiting_application_and_notice_gap_unsettled"
	StateAwaitingNoticeGap                        State = "awaiting_notice_gap"
	StateAwaitingNoticeGapUnsettled               State = "awaiting_notice_gap_unsettled"
	StateAwaitingApplicationGap                   State = "awaiting_application_gap"
	StateAwaitingApplicationGapUnsettled          State = "awaiting_application_gap_unsettled"

	// === Document collection, extension of a running episode ===

	StateAwaitingApplicationExtension          State = "awaiting_application_extension"
	StateAwaitingApplicationExtensionUnsettled State = "awaiting_application_extension_unsettled"

	// === Documents complete, held behind an unfinished earlier period ===

	StateAwaitingPriorPeriod State = "awaiting_prior_period"

	// === Adjudication chain ===

	StateAwaitingEligibilityCheck State = "awaiting_eligibility_check"
	StateAwaitingBenefitHistory   State = "awaiting_benefit_history"
	StateAwaitingSimulation       State = "awaiting_simulation"
	StateAwaitingManualApproval   State = "awaiting_manual_approval"
	StatePaying                   State = "paying"

	// === Terminal states ===

	StateClosed                         State = "closed"
	StateClosedWithoutPayment           State = "closed_without_payment"
	StateClosedWithoutPaymentWithNotice State = "closed_without_payment_with_notice"
	StatePaymentFailed                  State = "payment_failed"
	StateHandedToLegacySystem           State = "handed_to_legacy_system"
)

// Terminal reports whether the period is finished as far as this engine
// is concerned.
func (s State) Terminal() bool {
	switch s {
	case StateClosed, StateClosedWithoutPayment, StateClosedWithoutPaymentWithNotice,
		StatePaymentFailed, StateHandedToLegacySystem:
		return true
	}
	return false
}

// CollectingDocuments reports whether the period is still gathering its
// required documents.
func (s State) CollectingDocuments() bool {
	switch s {
	case StateAwaitingApplicationAndNoticeGap, StateAwaitingApplicationAndNoticeGapUnsettled,
		StateAwaitingNoticeGap, StateAwaitingNoticeGapUnsettled,
		StateAwaitingApplicationGap, StateAwaitingApplicationGapUnsettled,
		StateAwaitingApplicationExtension, StateAwaitingApplicationExtensionUnsettled:
		return true
	}
	return false
}

// Unsettled reports whether the state is held behind an unfinished
// earlier period.
func (s State) Unsettled() bool {
	switch s {
	case StateAwaitingApplicationAndNoticeGapUnsettled, StateAwaitingNoticeGapUnsettled,
		StateAwaitingApplicationGapUnsettled, StateAwaitingApplicationExtensionUnsettled,
		StateAwaitingPriorPeriod:
		return true
	}
	return false
}

// Settled maps an unsettled state to its counterpart once every earlier
// period has finished. Settled states map to themselves.
func (s State) Settled() State {
	switch s {
	case StateAwaitingApplicationAndNoticeGapUnsettled:
		return StateAwaitingApplicationAndNoticeGap
	case StateAwaitingNoticeGapUnsettled:
		return StateAwaitingNoticeGap
	case StateAwaitingApplicationGapUnsettled:
		return StateAwaitingApplicationGap
	case StateAwaitingApplicationExtensionUnsettled:
		return StateAwaitingApplicationExtension
	case StateAwaitingPriorPeriod:
		return StateAwaitingEligibilityCheck
	}
	return s
}
