package discord

import (
	"fmt"
	"strconv"

	"github.com/yonatandev1/tsukuyomi/bitfield"
)

// Intent is a bit position of the identify intents mask.
type Intent uint8

const (
	IntentGuilds                      Intent = 0
	IntentGuildMembers                Intent = 1
	IntentGuildModeration             Intent = 2
	IntentGuildExpressions            Intent = 3
	IntentGuildIntegrations           Intent = 4
	IntentGuildWebhooks               Intent = 5
	IntentGuildInvites                Intent = 6
	IntentGuildVoiceStates            Intent = 7
	IntentGuildPresences              Intent = 8
	IntentGuildMessages               Intent = 9
	IntentGuildMessageReactions       Intent = 10
	IntentGuildMessageTyping          Intent = 11
	IntentDirectMessages              Intent = 12
	IntentDirectMessageReactions      Intent = 13
	IntentDirectMessageTyping         Intent = 14
	IntentMessageContent              Intent = 15
	IntentGuildScheduledEvents        Intent = 16
	IntentAutoModerationConfiguration Intent = 20
	IntentAutoModerationExecution     Intent = 21
	IntentGuildMessagePolls           Intent = 24
	IntentDirectMessagePolls          Intent = 25
)

var intentNames = map[Intent]string{
	IntentGuilds:                      "guilds",
	IntentGuildMembers:                "guild_members",
	IntentGuildModeration:             "guild_moderation",
	IntentGuildExpressions:            "guild_expressions",
	IntentGuildIntegrations:           "guild_integrations",
	IntentGuildWebhooks:               "guild_webhooks",
	IntentGuildInvites:                "guild_invites",
	IntentGuildVoiceStates:            "guild_voice_states",
	IntentGuildPresences:              "guild_presences",
	IntentGuildMessages:               "guild_messages",
	IntentGuildMessageReactions:       "guild_message_reactions",
	IntentGuildMessageTyping:          "guild_message_typing",
	IntentDirectMessages:              "direct_messages",
	IntentDirectMessageReactions:      "direct_message_reactions",
	IntentDirectMessageTyping:         "direct_message_typing",
	IntentMessageContent:              "message_content",
	IntentGuildScheduledEvents:        "guild_scheduled_events",
	IntentAutoModerationConfiguration: "auto_moderation_configuration",
	IntentAutoModerationExecution:     "auto_moderation_execution",
	IntentGuildMessagePolls:           "guild_message_polls",
	IntentDirectMessagePolls:          "direct_message_polls",
}

func (i Intent) String() string {
	if name, ok := intentNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Intent(%d)", uint8(i))
}

type Intents = bitfield.Bits[Intent]

// IntentsNonPrivileged is every intent that needs no approval.
var IntentsNonPrivileged = bitfield.New(
	IntentGuilds,
	IntentGuildModeration,
	IntentGuildExpressions,
	IntentGuildIntegrations,
	IntentGuildWebhooks,
	IntentGuildInvites,
	IntentGuildVoiceStates,
	IntentGuildMessages,
	IntentGuildMessageReactions,
	IntentGuildMessageTyping,
	IntentDirectMessages,
	IntentDirectMessageReactions,
	IntentDirectMessageTyping,
	IntentGuildScheduledEvents,
	IntentAutoModerationConfiguration,
	IntentAutoModerationExecution,
	IntentGuildMessagePolls,
	IntentDirectMessagePolls,
)

var IntentsPrivileged = bitfield.New(IntentGuildMembers, IntentGuildPresences, IntentMessageContent)

// Permission is a bit position of a permissions mask.
type Permission uint8

const (
	PermissionCreateInstantInvite Permission = iota
	PermissionKickMembers
	PermissionBanMembers
	PermissionAdministrator
	PermissionManageChannels
	PermissionManageGuild
	PermissionAddReactions
	PermissionViewAuditLog
	PermissionPrioritySpeaker
	PermissionStream
	PermissionViewChannel
	PermissionSendMessages
	PermissionSendTTSMessages
	PermissionManageMessages
	PermissionEmbedLinks
	PermissionAttachFiles
	PermissionReadMessageHistory
	PermissionMentionEveryone
	PermissionUseExternalEmojis
	PermissionViewGuildInsights
	PermissionConnect
	PermissionSpeak
	PermissionMuteMembers
	PermissionDeafenMembers
	PermissionMoveMembers
	PermissionUseVAD
	PermissionChangeNickname
	PermissionManageNicknames
	PermissionManageRoles
	PermissionManageWebhooks
	PermissionManageGuildExpressions
	PermissionUseApplicationCommands
	PermissionRequestToSpeak
	PermissionManageEvents
	PermissionManageThreads
	PermissionCreatePublicThreads
	PermissionCreatePrivateThreads
	PermissionUseExternalStickers
	PermissionSendMessagesInThreads
	PermissionUseEmbeddedActivities
	PermissionModerateMembers
)

var permissionNames = [...]string{
	"create_instant_invite",
	"kick_members",
	"ban_members",
	"administrator",
	"manage_channels",
	"manage_guild",
	"add_reactions",
	"view_audit_log",
	"priority_speaker",
	"stream",
	"view_channel",
	"send_messages",
	"send_tts_messages",
	"manage_messages",
	"embed_links",
	"attach_files",
	"read_message_history",
	"mention_everyone",
	"use_external_emojis",
	"view_guild_insights",
	"connect",
	"speak",
	"mute_members",
	"deafen_members",
	"move_members",
	"use_vad",
	"change_nickname",
	"manage_nicknames",
	"manage_roles",
	"manage_webhooks",
	"manage_guild_expressions",
	"use_application_commands",
	"request_to_speak",
	"manage_events",
	"manage_threads",
	"create_public_threads",
	"create_private_threads",
	"use_external_stickers",
	"send_messages_in_threads",
	"use_embedded_activities",
	"moderate_members",
}

func (p Permission) String() string {
	if int(p) < len(permissionNames) {
		return permissionNames[p]
	}
	return fmt.Sprintf("Permission(%d)", uint8(p))
}

type Permissions = bitfield.Bits[Permission]

// ParsePermissions decodes the decimal string the API uses for permission masks.
func ParsePermissions(s string) (Permissions, error) {
	raw, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("discord: invalid permissions %q: %w", s, err)
	}
	return Permissions(raw), nil
}

// MessageFlag is a bit position of a message's flags.
type MessageFlag uint8

const (
	MessageFlagCrossposted                      MessageFlag = 0
	MessageFlagIsCrosspost                      MessageFlag = 1
	MessageFlagSuppressEmbeds                   MessageFlag = 2
	MessageFlagSourceMessageDeleted             MessageFlag = 3
	MessageFlagUrgent                           MessageFlag = 4
	MessageFlagHasThread                        MessageFlag = 5
	MessageFlagEphemeral                        MessageFlag = 6
	MessageFlagLoading                          MessageFlag = 7
	MessageFlagFailedToMentionSomeRolesInThread MessageFlag = 8
	MessageFlagSuppressNotifications            MessageFlag = 12
	MessageFlagIsVoiceMessage                   MessageFlag = 13
)

var messageFlagNames = map[MessageFlag]string{
	MessageFlagCrossposted:                      "crossposted",
	MessageFlagIsCrosspost:                      "is_crosspost",
	MessageFlagSuppressEmbeds:                   "suppress_embeds",
	MessageFlagSourceMessageDeleted:             "source_message_deleted",
	MessageFlagUrgent:                           "urgent",
	MessageFlagHasThread:                        "has_thread",
	MessageFlagEphemeral:                        "ephemeral",
	MessageFlagLoading:                          "loading",
	MessageFlagFailedToMentionSomeRolesInThread: "failed_to_mention_some_roles_in_thread",
	MessageFlagSuppressNotifications:            "suppress_notifications",
	MessageFlagIsVoiceMessage:                   "is_voice_message",
}

func (f MessageFlag) String() string {
	if name, ok := messageFlagNames[f]; ok {
		return name
	}
	return fmt.Sprintf("MessageFlag(%d)", uint8(f))
}

type MessageFlags = bitfield.Bits[MessageFlag]
