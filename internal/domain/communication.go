package domain

import "time"

// CommunicationType classifies the audience of a communication.
type CommunicationType string

const (
	CommunicationBroadcast CommunicationType = "broadcast"
	CommunicationDirect    CommunicationType = "direct"
	CommunicationGroup     CommunicationType = "group"
	CommunicationPeer      CommunicationType = "constituent-to-constituent"
)

// Direction records which way a communication flows.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
	DirectionInternal Direction = "internal"
	DirectionPeer     Direction = "peer"
)

// Channel is the delivery medium. Delivery itself happens elsewhere.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelFacebook Channel = "facebook"
	ChannelTwitter  Channel = "twitter"
	ChannelOther    Channel = "other"
)

// CommunicationStatus enumerates lifecycle states.
type CommunicationStatus string

const (
	CommunicationDraft     CommunicationStatus = "draft"
	CommunicationScheduled CommunicationStatus = "scheduled"
	CommunicationSent      CommunicationStatus = "sent"
	CommunicationDelivered CommunicationStatus = "delivered"
	CommunicationFailed    CommunicationStatus = "failed"
	CommunicationCancelled CommunicationStatus = "cancelled"
)

// Location narrows a communication to part of a district.
type Location struct {
	District string `json:"district,omitempty"`
	Precinct string `json:"precinct,omitempty"`
}

// CommunicationMetadata holds descriptive fields.
type CommunicationMetadata struct {
	TemplateID  string    `json:"templateId,omitempty"`
	Campaign    string    `json:"campaign,omitempty"`
	Tags        []string  `json:"tags"`
	AIGenerated bool      `json:"aiGenerated,omitempty"`
	Sentiment   string    `json:"sentiment,omitempty"`
	Platform    string    `json:"platform,omitempty"`
	Location    *Location `json:"location,omitempty"`
}

// CommunicationStats are delivery counters reported by channel integrations.
type CommunicationStats struct {
	Delivered int `json:"delivered"`
	Opened    int `json:"opened"`
	Clicked   int `json:"clicked"`
	Responded int `json:"responded"`
	Bounced   int `json:"bounced,omitempty"`
}

// Communication is a message between an office and its constituents.
type Communication struct {
	EntityBase
	SenderID         string                `json:"senderId"`
	SenderRole       Role                  `json:"senderRole"`
	RecipientID      string                `json:"recipientId,omitempty"`
	RecipientGroupID string                `json:"recipientGroupId,omitempty"`
	Type             CommunicationType     `json:"type"`
	Direction        Direction             `json:"direction"`
	Channel          Channel               `json:"channel"`
	Subject          string                `json:"subject"`
	Content          string                `json:"content"`
	Status           CommunicationStatus   `json:"status"`
	ScheduledFor     *time.Time            `json:"scheduledFor,omitempty"`
	SentAt           *time.Time            `json:"sentAt,omitempty"`
	ApprovedBy       string                `json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time            `json:"approvedAt,omitempty"`
	ParentID         string                `json:"parentId,omitempty"`
	Metadata         CommunicationMetadata `json:"metadata"`
	Stats            CommunicationStats    `json:"analytics"`
}

// Kind implements Entity.
func (c *Communication) Kind() EntityType { return EntityCommunications }

// District returns metadata.location.district.
func (c *Communication) District() string {
	if c.Metadata.Location == nil {
		return ""
	}
	return c.Metadata.Location.District
}

// Attrs implements Entity.
func (c *Communication) Attrs() Attrs {
	a := c.EntityBase.attrs(c.District())
	a[FieldStatus] = string(c.Status)
	a[FieldChannel] = string(c.Channel)
	a[FieldDirection] = string(c.Direction)
	a[FieldType] = string(c.Type)
	a[FieldSenderID] = c.SenderID
	if c.ScheduledFor != nil {
		a[FieldScheduledFor] = FormatTimeAttr(*c.ScheduledFor)
	}
	return a
}
